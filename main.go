// =============================================================================
// Membership Importer - Main Entry Point
// =============================================================================
//
// USAGE:
//   mess-import import <workbook>     - Import the membership sheet
//   mess-import schedule <workbook>   - Import jobs and shift schedules
//   mess-import version               - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : Cobra command definitions
//   - internal/  : Parsing, mapping, aggregation and storage
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/mess-import/cmd"
)

func main() {
	cmd.Execute()
}
