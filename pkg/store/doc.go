// Package store persists settled layouts produced by live views.
//
// [Store] has two implementations: [Memory], used by tests and by a server
// started without a database, and [Mongo], which keeps records in a MongoDB
// collection so snapshots outlive the process.
//
//	s, err := store.NewMongo(ctx, store.MongoOptions{URI: uri})
//	rec, err := s.Save(ctx, store.Record{Layout: v.Layout(), Source: hash})
package store
