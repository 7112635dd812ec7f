// Package cmd implements the command-line interface for mindfulday.
//
// This package provides the following commands:
//   - run: Generate today's plan and email it
//   - plan: Generate today's plan and print it without sending
//   - auth login: Authorize Google Calendar, Tasks and Gmail
//   - auth status: Show the stored token state per service
//   - version: Display version information
//
// The run command is the default command when no subcommand is specified.
package cmd
