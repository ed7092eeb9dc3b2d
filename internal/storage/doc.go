// Package storage keeps the files users upload for printing.
//
// Two back-ends implement Store: DiskStore (a flat directory, the default)
// and S3Store (a bucket prefix). File names are sanitised with CleanName
// before they reach either back-end, so a name can never leave the store's
// root.
package storage
