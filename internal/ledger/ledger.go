// internal/ledger/ledger.go
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LicenceStatus is the persisted status of a licence record.
type LicenceStatus string

const (
	LicenceStatusActive  LicenceStatus = "Active"
	LicenceStatusRevoked LicenceStatus = "Revoked"
	LicenceStatusExpired LicenceStatus = "Expired"
)

// RoyaltySplit assigns a share of each sale to a beneficiary wallet.
type RoyaltySplit struct {
	Beneficiary string `json:"beneficiary" validate:"required"`
	ShareBps    uint16 `json:"share_bps"`
}

// CertificateDetails is the registered licensing record for one asset.
// Immutable once created.
type CertificateDetails struct {
	AssetID           string
	Authority         string
	MetadataURIHash   [32]byte
	LicenceTemplateID uint16
	Price             uint64
	RoyaltySplits     []RoyaltySplit
	Title             string
}

// Licence is one buyer's purchase record against a certificate. There is at
// most one record per (certificate, buyer) pair.
type Licence struct {
	CertificateAssetID string
	Buyer              string
	PurchasePrice      uint64
	PurchaseTimestamp  int64
	ExpiryTimestamp    *int64
	Status             LicenceStatus
}

// EffectiveStatus returns the status a reader must act on: an Active licence
// whose expiry has passed is treated as Expired even before an
// EvaluateExpiry instruction persists the transition.
func (l *Licence) EffectiveStatus(now time.Time) LicenceStatus {
	if l.Status == LicenceStatusActive && l.ExpiryTimestamp != nil && *l.ExpiryTimestamp <= now.Unix() {
		return LicenceStatusExpired
	}
	return l.Status
}

// LogEntry is one finalized instruction's ordered log output.
type LogEntry struct {
	Signature         string
	FinalizationIndex uint64
	Logs              []string
}

// Receipt identifies a finalized instruction.
type Receipt struct {
	Signature         string `json:"signature"`
	FinalizationIndex uint64 `json:"finalization_index"`
}

type licenceKey struct {
	certificateAssetID string
	buyer              string
}

// Ledger is the in-process deterministic state machine backing the
// certificate registry and licence ledger. Every instruction executes
// atomically under a single lock; a successful instruction is assigned a
// monotonically increasing finalization index and appends exactly one
// LogEntry. Failed instructions leave no state behind and emit nothing.
type Ledger struct {
	mu sync.Mutex

	certificates map[string]*CertificateDetails
	licences     map[licenceKey]*Licence
	balances     map[string]uint64
	treasury     string

	log       []LogEntry
	nextIndex uint64

	subscribers map[uint64]chan LogEntry
	nextSubID   uint64

	now    func() time.Time
	logger *logrus.Entry
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger whose purchase settlements credit the given treasury
// account.
func New(treasury string, logger *logrus.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		certificates: make(map[string]*CertificateDetails),
		licences:     make(map[licenceKey]*Licence),
		balances:     make(map[string]uint64),
		treasury:     treasury,
		nextIndex:    1,
		subscribers:  make(map[uint64]chan LogEntry),
		now:          time.Now,
		logger:       logger.WithField("component", "ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Treasury returns the treasury account identity.
func (l *Ledger) Treasury() string {
	return l.treasury
}

// Airdrop credits an account with funds. Development and test facility; the
// production payment medium is funded out of band.
func (l *Ledger) Airdrop(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// BalanceOf returns the current funds of an account.
func (l *Ledger) BalanceOf(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Logs returns all finalized log entries with FinalizationIndex >= from, in
// finalization order. Used by the indexer to resume from its cursor.
func (l *Ledger) Logs(from uint64) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]LogEntry, 0)
	for _, entry := range l.log {
		if entry.FinalizationIndex >= from {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Subscribe registers a live log consumer. Entries finalized after the call
// are delivered in order on the returned channel. The consumer must drain
// promptly; entries that do not fit the buffer are dropped and must be
// recovered via Logs replay. The returned cancel function is idempotent.
func (l *Ledger) Subscribe(buffer int) (<-chan LogEntry, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if buffer <= 0 {
		buffer = 256
	}
	id := l.nextSubID
	l.nextSubID++
	ch := make(chan LogEntry, buffer)
	l.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if sub, ok := l.subscribers[id]; ok {
				delete(l.subscribers, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// finalize assigns an index and signature to a successful instruction and
// appends its log entry. Caller must hold l.mu.
func (l *Ledger) finalize(lines []string) Receipt {
	entry := LogEntry{
		Signature:         uuid.NewString(),
		FinalizationIndex: l.nextIndex,
		Logs:              lines,
	}
	l.nextIndex++
	l.log = append(l.log, entry)

	for _, sub := range l.subscribers {
		select {
		case sub <- entry:
		default:
			// Slow subscriber; it recovers through Logs replay.
		}
	}

	l.logger.WithFields(logrus.Fields{
		"signature":          entry.Signature,
		"finalization_index": entry.FinalizationIndex,
	}).Debug("Instruction finalized")

	return Receipt{Signature: entry.Signature, FinalizationIndex: entry.FinalizationIndex}
}

func isZeroHash(h [32]byte) bool {
	return h == [32]byte{}
}

func summarizeSplits(splits []RoyaltySplit) string {
	parts := make([]string, 0, len(splits))
	for _, s := range splits {
		parts = append(parts, s.Beneficiary)
	}
	return strings.Join(parts, ",")
}
