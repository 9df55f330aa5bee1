// Package main provides clipctl, the ClipHub maintenance tool.
//
// clipctl works directly on the server's data: it reads the same
// environment variables and .env file, opens the SQLite clip store and
// uses the thumbnail directory layout. It can run while the server is up.
//
// # Usage
//
//	clipctl reprocess <id> [--notify]   Run the thumbnail pipeline for a clip in the foreground
//	clipctl cleanup <id> [--keep]       Remove a clip's thumbnail files and clear its reference
//	clipctl status <id>                 Show a clip and which artifact files exist
//	clipctl pending [--limit N] [--reprocess]
//	                                    List (and optionally process) clips without a thumbnail
//	clipctl orphans [--remove]          Report (and optionally delete) artifacts of deleted clips
//	clipctl user add <name> [--role admin] [--avatar URL]
//	clipctl user show <id>
//
// Commands exit with status 1 on error.
package main
