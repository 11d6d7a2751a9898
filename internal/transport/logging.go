// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"loopfx/internal/log"
)

// LoggingTransport implements the Transport interface by logging every
// message at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the message as JSON, or with %+v if it cannot be marshalled.
func (lt *LoggingTransport) Send(data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Debugf("feed: (%T) %+v", data, data)
		return nil
	}
	log.Debugf("feed: %s", jsonData)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
