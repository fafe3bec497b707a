// Package google provides shared infrastructure for the Google Calendar connector.
//
// It contains:
//   - TokenSource adapter to bridge a TokenProvider to oauth2.TokenSource
//   - The calendar/v3 service factory
//   - Classification of Google API errors onto domain sentinels
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	ts := google.NewTokenSource(ctx, google.NewCredentialTokenProvider(cred))
//	svc, err := google.NewCalendarService(ctx, ts)
//
// # OAuth2 Scopes
//
// The calendar connector only reads:
//   - https://www.googleapis.com/auth/calendar.readonly (sensitive)
package google
