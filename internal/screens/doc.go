// Package screens binds livesync controllers to the console's three data
// screens: the customer list, the customer detail and the payment history
// shown under it. Each binding picks the fetcher, the invalidation events,
// the relevance predicate and the debounce window for its screen.
package screens
