// Package ui implements the gymsync terminal console with Bubble Tea.
//
// The console has three views: the customer list, the customer detail (with
// the payment history below it) and the console's own log. Each data view is
// driven by livesync controllers built in the screens package.
//
// Controllers notify from their own goroutines. Notifications are posted to a
// relay that keeps only the newest message per slot, and a waiting tea.Cmd
// hands the batch to Update. Nothing inside Update ever blocks on a
// controller: Load, SetFilters and friends return immediately and their
// results arrive later through the relay.
//
// Detail notifications carry a session number. Opening a customer bumps the
// session, so messages still in flight from a closed detail are dropped.
//
// Key bindings:
//
//	j/k      move in the customer list
//	n/p      next and previous page
//	f        cycle the status filter (saved to prefs)
//	enter    open the selected customer
//	w        renewal wizard; pauses live refresh of the detail while open
//	r        reload the current view loudly
//	l        console log
//	esc      back
//	T        cycle theme
//	q        quit
package ui
