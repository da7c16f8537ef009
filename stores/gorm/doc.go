//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based implementation of the authgate store
// interfaces. It supports any database that GORM supports (PostgreSQL, MySQL,
// SQLite, etc.) and is suitable for production deployments requiring
// relational storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: User records
//   - accounts: Provider accounts (credentials, google, github, etc.)
//   - sessions: Server-side sessions keyed by token digest
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	store := gormstore.NewStore(db)
//	gormstore.AutoMigrate(db)
//	auth := authgate.New(store, opts)
package gorm
