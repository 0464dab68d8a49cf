// Package simplepublish is the content core of a small publishing site:
// posts and tutorials written in Markdown (or pasted as HTML), categories,
// media uploads and a contact form.
//
// The structured Repository is authoritative. Every record write is
// followed by a write of its flat-file Mirror, a front-matter Markdown
// document kept in a BlobStore. A mirror failure never undoes the primary
// write; it is reported on the returned Result and can be repaired later
// with SyncMirror or RebuildMirrors.
//
// Repositories (memory, Postgres, SQLite) and blob stores (memory,
// filesystem, S3) live in subpackages, as do the converters, the display
// renderer and the HTTP API.
package simplepublish
