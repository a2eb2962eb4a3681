//go:build wireinject
// +build wireinject

package main

import (
	"cn-alpha/internal/app"
	"cn-alpha/internal/ingest"

	"github.com/google/wire"
)

// InitializeApp builds the pipeline App via Wire.
// Caller must call a.Provider.Close() when done.
func InitializeApp() (*app.App, error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideStore,
		app.ProvideProvider,
		app.ProvideNavSaver,
		wire.Bind(new(ingest.DataProvider), new(*ingest.EastmoneyProvider)),
		wire.Struct(new(app.App), "*"),
	)
	return nil, nil
}
