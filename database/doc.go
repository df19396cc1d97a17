// Package database provides a GORM-based database component with connection
// retries, pooling, transactions and auto-migration. It backs the table
// source and sink.
//
// The sqlite driver is built in; WithDriver swaps in any other gorm dialector.
//
//	comp := database.NewComponent(cfg, log).
//	    WithAutoMigrate(&demand.ProductAnalytics{}, &demand.ProductDemand{})
//	registry.Register(comp)
//
// A disabled component starts as a no-op and reports itself healthy.
package database
