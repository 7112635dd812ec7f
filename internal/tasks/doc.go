// Package tasks reads the user's default Google Tasks list.
//
// This package wraps the Google Tasks API (tasks/v1). It only reads: every
// task of the "@default" list is returned, including completed ones, so the
// planner can see what is already done.
//
// # Authentication
//
// Requests are authorized with a tasks.readonly credential issued by the
// google package's CredentialStore.
package tasks
