// Package models defines the payload types carried on tribeca topics.
//
// Every enumerated type declares an explicit option list of {Label, Value}
// pairs next to its constants, for selection widgets:
//
//	for _, opt := range models.QuotingModeOptions {
//	    fmt.Println(opt.Label, opt.Value)
//	}
//
// Payloads are plain values. Types holding slices or pointers provide a
// Clone method returning an independent deep copy; all other types are
// copied by assignment.
//
// Struct fields use CBOR integer keys for compact encoding on the wire.
package models
