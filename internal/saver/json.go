package saver

import (
	"encoding/json"
	"os"

	"cn-alpha/internal/model"
)

// JSONSaver writes the nav curve as JSON (array, indented).
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(points []model.NavPoint, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(points)
}
