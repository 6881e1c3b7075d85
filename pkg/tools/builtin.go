package tools

import "github.com/telos-labs/telos/pkg/registry"

// RegisterBuiltins adds every builtin capability constructor to the catalog.
func RegisterBuiltins(catalog *registry.Catalog) {
	catalog.Register("wikipedia", NewWikipediaConstructor)
	catalog.Register("websearch", NewWebSearchConstructor)
	catalog.Register("calculator", NewCalculatorConstructor)
}
