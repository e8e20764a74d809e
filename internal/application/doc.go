// Package application provides application initialization and dependency wiring.
// It encapsulates loading the population dataset and the creation of storage,
// the apportionment engine, metrics, handlers, routers, and HTTP server
// instances, making the main package cleaner and more focused on CLI parsing
// and orchestration.
package application
