package saver

import (
	"github.com/parquet-go/parquet-go"

	"cn-alpha/internal/model"
)

// ParquetSaver writes the nav curve as Parquet.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(points []model.NavPoint, path string) error {
	return parquet.WriteFile(path, points)
}
