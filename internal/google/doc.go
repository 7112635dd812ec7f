// Package google manages OAuth2 credentials for the Google APIs the planner uses.
//
// Every service (Calendar, Tasks, Gmail) is authorized on its own with the
// narrowest scope it needs, and its token is persisted separately through a
// TokenStore. The CredentialStore drives each service through its lifecycle:
//
//	unauthorized --consent--> valid --time--> expired --refresh--> valid
//
// Interactive consent is delegated to an InteractiveAuthorizer so headless
// runs and tests can substitute one that never prompts.
package google
