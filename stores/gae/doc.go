//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of the
// authgate store interfaces, suitable for App Engine and Cloud Run
// deployments. All entities are stored under a configurable namespace so
// multiple apps can share a project.
//
// # Entities
//
//   - User: user records, keyed by user id
//   - Email: lowercased email to user id mapping, used for uniqueness
//   - Account: provider accounts, keyed by provider + ":" + account id
//   - Session: sessions keyed by token digest
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewStore(client, "myapp")
//	auth := authgate.New(store, opts)
package gae
