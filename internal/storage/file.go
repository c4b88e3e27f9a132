package storage

import "os"

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
