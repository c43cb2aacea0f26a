// Package archive keeps the results of scenario runs.
//
// A Record holds the trace and run counts of one run, keyed by scenario name
// and run id. Records go to a directory (DiskStore) or an S3 bucket
// (S3Store); Open picks one from a location string:
//
//	store, err := archive.Open("s3://my-bucket/runs", archive.S3Options{Region: "eu-west-1"})
//	key, err := store.Put(ctx, archive.FromResult(res, runErr))
//
// Run ids are UUIDv7, so listing a scenario's keys yields its runs oldest
// first.
package archive
