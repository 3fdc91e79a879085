package usecase

import "github.com/user/blocklist-service/internal/entity"

// Notifier receives the outcome of every workflow.
type Notifier interface {
	Notify(n entity.Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n entity.Notice)

func (f NotifierFunc) Notify(n entity.Notice) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(entity.Notice) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
