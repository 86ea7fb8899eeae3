package honeycomb

import (
	"errors"

	"github.com/honeycombio/libhoney-go/transmission"
)

// MultiSender fans every event out to each of its Senders. The first Sender
// owns the response channel.
type MultiSender struct {
	Senders []transmission.Sender
}

func (s *MultiSender) Add(ev *transmission.Event) {
	for _, tx := range s.Senders {
		tx.Add(ev)
	}
}

func (s *MultiSender) Start() error {
	if len(s.Senders) == 0 {
		return errors.New("no senders configured")
	}
	return s.each(transmission.Sender.Start)
}

func (s *MultiSender) Stop() error {
	return s.each(transmission.Sender.Stop)
}

func (s *MultiSender) Flush() error {
	return s.each(transmission.Sender.Flush)
}

// each stops at the first Sender that fails.
func (s *MultiSender) each(f func(transmission.Sender) error) error {
	for _, tx := range s.Senders {
		if err := f(tx); err != nil {
			return err
		}
	}
	return nil
}

func (s *MultiSender) TxResponses() chan transmission.Response {
	return s.Senders[0].TxResponses()
}

// SendResponse reports whether any Sender could not deliver resp.
func (s *MultiSender) SendResponse(resp transmission.Response) bool {
	blocked := false
	for _, tx := range s.Senders {
		if tx.SendResponse(resp) {
			blocked = true
		}
	}
	return blocked
}
