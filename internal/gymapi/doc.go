// Package gymapi provides an HTTP client for the gym management backend.
//
// # Overview
//
// The client serves the three reads the console keeps in sync:
//
//   - GET /api/customers/{id}: one customer and their current contract
//   - GET /api/customers: a filtered, paginated customer directory
//   - GET /api/customers/{id}/payments: a customer's payment history
//
// Source is the interface the sync controllers depend on; *Client implements
// it and tests substitute fakes.
//
// # Request Handling
//
// All requests:
//   - Use the caller's context for cancellation
//   - Set Accept: application/json and User-Agent: gymsync/0.1
//   - Forward the fetch request id as X-Request-ID when one is attached
//   - Have a 10-second client timeout
//
// # Errors
//
// HTTP statuses of 400 and above become *APIError. The server's explanation is
// taken from the "message" or "error" field of a JSON body and exposed through
// UserMessage, which is what the console shows for failed loud loads.
// Transport and decoding errors are wrapped with fmt.Errorf:
//
//   - "execute request: dial tcp: connection refused"
//   - "api /api/customers/c-1 returned status 404: customer not found"
//   - "decode response: unexpected end of JSON input"
//
// # Money
//
// Amounts and fees are decimal.Decimal so totals never drift. PaidTotal sums
// the settled payments of a history.
package gymapi
