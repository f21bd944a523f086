package cart

import (
	"go.uber.org/zap"

	"gofalre.io/storefront/models/enum"
)

// Notifier shows transient notices (toasts) to the user.
type Notifier interface {
	Notify(level enum.NoticeLevel, message string)
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier writes notices to the log; used when no UI is attached.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(level enum.NoticeLevel, message string) {
	switch level {
	case enum.NoticeError:
		n.logger.Error(message, zap.String("notice", string(level)))
	case enum.NoticeWarning:
		n.logger.Warn(message, zap.String("notice", string(level)))
	default:
		n.logger.Info(message, zap.String("notice", string(level)))
	}
}
