package actors

import "time"

const (
	// Inbox
	LinkManInboxChLen  = 256
	NotifierInboxChLen = 64

	// Misc

	LManStateTickInterval = time.Millisecond * 250

	// Warnings about events for unknown peers are let through once per interval, per peer and event.
	UnknownPeerWarnInterval = time.Second * 20
)
