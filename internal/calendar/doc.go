// Package calendar provides a client for the Google Calendar API.
//
// The client authenticates with a service-account credentials file and works
// on a single calendar id passed per call. It only reads and creates events.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := calendar.NewClient(ctx, "service-account.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	events, err := client.ListEvents(ctx, calendarID, start, end)
//	if err != nil {
//	    log.Fatal(err)
//	}
package calendar
