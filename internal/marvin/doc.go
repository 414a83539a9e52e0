// Package marvin is a small client for the Amazing Marvin REST API.
//
// Every call goes through Client.Execute, which performs exactly one round
// trip with a bounded timeout and never retries. The API token is taken from
// the call's context (see WithCredentials), so a single Client can serve many
// caller sessions concurrently.
//
// Failures are returned as *StatusError or *RequestError and can be mapped to
// a fixed set of categories with Classify:
//
//	tasks, err := client.TodayItems(ctx, "2024-03-15")
//	if err != nil {
//	    classified := marvin.Classify(err)
//	    return classified.Message
//	}
package marvin
