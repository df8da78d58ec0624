package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dom/account-service/internal/mail"
	"github.com/dom/account-service/internal/media"
	"github.com/google/uuid"
)

// FakeMailer records outgoing messages instead of delivering them.
type FakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

var _ mail.Mailer = (*FakeMailer)(nil)

func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

// FailWith makes every following Send fail with err. Pass nil to recover.
func (m *FakeMailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *FakeMailer) Send(ctx context.Context, msg mail.Message) (*mail.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, &mail.DeliveryError{Transport: "fake", Err: m.err}
	}
	m.sent = append(m.sent, msg)
	return &mail.Result{MessageID: uuid.NewString()}, nil
}

// Sent returns the delivered messages in order.
func (m *FakeMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastTo returns the most recent message sent to addr.
func (m *FakeMailer) LastTo(addr string) (mail.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			return m.sent[i], true
		}
	}
	return mail.Message{}, false
}

// FakeMediaStore is a media.Store that keeps track of deleted keys.
type FakeMediaStore struct {
	mu      sync.Mutex
	deleted []string
}

var _ media.Store = (*FakeMediaStore)(nil)

func NewFakeMediaStore() *FakeMediaStore {
	return &FakeMediaStore{}
}

func (s *FakeMediaStore) PresignAvatarUpload(ctx context.Context, userID uuid.UUID) (*media.Upload, error) {
	key := media.AvatarPrefix(userID) + uuid.NewString()
	return &media.Upload{
		URL:       "https://uploads.test/" + key + "?X-Amz-Signature=fake",
		Key:       key,
		ExpiresAt: time.Now().Add(media.UploadTTL),
	}, nil
}

func (s *FakeMediaStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *FakeMediaStore) URL(key string) string {
	return "https://cdn.test/" + key
}

// Deleted returns the keys removed so far.
func (s *FakeMediaStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deleted))
	copy(out, s.deleted)
	return out
}
