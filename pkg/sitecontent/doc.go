// Package sitecontent resolves the named content documents of the site and
// keeps every reader in sync when a writer changes one.
//
// A document (for example "home" or "footer.snsLinks") is resolved through a
// fixed fallback chain: the primary store key, then a legacy store key kept
// for backward compatibility, then a static JSON document fetched over HTTP,
// and finally a compiled-in default that is valid by construction. Each tier
// is decoded and validated against the document's schema; a tier that is
// absent, malformed or does not match the schema is skipped.
//
// Writers go through Service.Save, which persists the payload and publishes a
// change for the document. Readers hold a Consumer (Service.UseContent) that
// re-resolves on every change and only reports a new value when the resolved
// document differs structurally from the one it already has.
//
// Store backends (memory, filesystem, Redis, Postgres, SQLite, S3) live under
// store/, cross-process change relays under relay/.
package sitecontent
