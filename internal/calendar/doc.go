// Package calendar reads the day's events from the Google Calendar API.
//
// Example usage:
//
//	client := calendar.NewClient(calendar.WithLogger(logger))
//	events, err := client.FetchEvents(ctx, cred, calendar.DayRange(time.Now(), loc))
//	if err != nil {
//	    return err
//	}
package calendar
