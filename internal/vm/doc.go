// Package vm provides high-level server lifecycle operations.
//
// This package orchestrates the lower-level components (cloud provider,
// user-data, DNS, backup) into the operations the CLI exposes:
//   - Create: provision a server labeled as ephemeral
//   - Delete: optionally back up a server, then delete it
//   - List: list ephemeral servers
//   - Adopt: label an existing server as ephemeral
//   - ServerTypes / Images: list the catalog, cached between runs
//
// Error Handling:
//
// Delete never deletes a server whose requested backup failed or could not
// be verified; it returns ErrBackupFailed instead. Best-effort steps such as
// the DuckDNS update after Create log a warning and do not fail the call.
//
// Testing:
//
// Every public operation builds its real dependencies from the configuration
// and delegates to an unexported xxxWithDeps function that accepts interfaces.
package vm
