// Package notification ships the outbound side channel for reconciliation
// exceptions. The log notifier is the only built-in sink; mail or chat
// delivery hangs off the same log stream.
package notification

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gestion/settlement/internal/domain/settlement"
)

// LogNotifier reports exceptions through the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier writing to the given logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyAmountShippingException reports a group accepted under the
// gross-plus-shipping exception: the invoice matched the paid amount plus
// its shipping component instead of the reference basis.
func (n *LogNotifier) NotifyAmountShippingException(_ context.Context, refs []string, expected, actual decimal.Decimal) {
	n.logger.Warn("group accepted under amount+shipping exception",
		zap.Strings("order_refs", refs),
		zap.String("expected_total", expected.StringFixed(2)),
		zap.String("actual_total", actual.StringFixed(2)),
	)
}

var _ settlement.Notifier = (*LogNotifier)(nil)
