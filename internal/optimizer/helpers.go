package optimizer

import "github.com/fathurwithyou/silberdb/internal/predicate"

func parsePredicateSafe(s string) (*predicate.Predicate, error) {
	return predicate.Parse(s)
}
