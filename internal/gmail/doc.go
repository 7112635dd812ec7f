// Package gmail delivers daily plans by email through the Gmail API.
//
// SendPlan renders a plan into a multipart/alternative message with a plain
// text part and an HTML part, then sends it from the authorized user's
// account with the gmail.send scope. Recipient and plan are validated before
// any request is made.
//
// Example usage:
//
//	client := gmail.NewClient(gmail.WithLogger(logger))
//	id, err := client.SendPlan(ctx, cred, "me@example.com", plan)
//	if err != nil {
//	    return err
//	}
package gmail
