// internal/indexer/pipeline.go
package indexer

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/creatorclaim/backend/internal/ledger"
	"github.com/creatorclaim/backend/internal/models"
	"github.com/creatorclaim/backend/internal/utils"
)

// LogSource is the ledger's event log interface consumed by the pipeline.
// *ledger.Ledger satisfies it.
type LogSource interface {
	Logs(from uint64) []ledger.LogEntry
	Subscribe(buffer int) (<-chan ledger.LogEntry, func())
}

// Notifier receives newly indexed royalty events for live fan-out.
type Notifier interface {
	NotifyRoyalty(event *models.RoyaltyEvent)
}

// Config holds pipeline tuning knobs.
type Config struct {
	Workers         int
	SubscribeBuffer int
	ApplyRetry      utils.RetryPolicy
	ReconnectRetry  utils.RetryPolicy
}

// DefaultConfig returns sensible pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		SubscribeBuffer: 256,
		ApplyRetry:      utils.DefaultRetryPolicy(),
		ReconnectRetry: utils.RetryPolicy{
			MaxAttempts:     1,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
			Multiplier:      2.0,
			JitterFraction:  0.2,
		},
	}
}

// errLicenceNotIndexed marks a status update whose target licence has not
// been indexed yet (out-of-order or missing registration). It is retried
// with backoff rather than dropped.
var errLicenceNotIndexed = errors.New("licence not indexed yet")

type workItem struct {
	index     uint64
	signature string
	event     Event
}

// Pipeline consumes the ledger's finalized event log and applies each event
// exactly once to the index. Decoding runs on the consumer goroutine;
// applies are partitioned by event key so that events for the same
// (certificate, buyer) pair are serialized while unrelated keys proceed in
// parallel.
type Pipeline struct {
	source   LogSource
	store    Store
	notifier Notifier
	config   Config
	logger   *logrus.Entry

	cursor *cursorTracker

	seenMu sync.Mutex
	seen   map[string]struct{}

	now func() time.Time
}

// NewPipeline creates a Pipeline. The notifier may be nil.
func NewPipeline(source LogSource, store Store, notifier Notifier, cfg Config, logger *logrus.Logger) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pipeline{
		source:   source,
		store:    store,
		notifier: notifier,
		config:   cfg,
		logger:   logger.WithField("component", "indexer"),
		cursor:   newCursorTracker(0),
		seen:     make(map[string]struct{}),
		now:      time.Now,
	}
}

// Position returns the highest finalization index up to which every event
// has been applied or given up on.
func (p *Pipeline) Position() uint64 {
	return p.cursor.Position()
}

// Run consumes the log until the context is cancelled. On subscription loss
// it reconnects with backoff, resuming from the last acknowledged position,
// never skipping ahead.
func (p *Pipeline) Run(ctx context.Context) error {
	workers := make([]chan workItem, p.config.Workers)
	var wg sync.WaitGroup
	for i := range workers {
		workers[i] = make(chan workItem, p.config.SubscribeBuffer)
		wg.Add(1)
		go func(ch chan workItem) {
			defer wg.Done()
			for item := range ch {
				p.applyWithRetry(ctx, item)
			}
		}(workers[i])
	}
	defer func() {
		for _, ch := range workers {
			close(ch)
		}
		wg.Wait()
	}()

	var lastDispatched uint64
	reconnectAttempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, cancel := p.source.Subscribe(p.config.SubscribeBuffer)

		// Replay everything finalized past the acknowledged position,
		// including entries finalized before the subscription took effect.
		for _, entry := range p.source.Logs(p.cursor.Position() + 1) {
			if entry.FinalizationIndex > lastDispatched {
				p.dispatch(entry, workers)
				lastDispatched = entry.FinalizationIndex
			}
		}
		reconnectAttempt = 0

	consume:
		for {
			select {
			case <-ctx.Done():
				cancel()
				return ctx.Err()
			case entry, ok := <-entries:
				if !ok {
					break consume
				}
				if entry.FinalizationIndex <= lastDispatched {
					continue
				}
				// A bounded subscription buffer can drop entries under
				// pressure. Finalization indexes are contiguous, so a jump
				// past lastDispatched+1 means entries were missed; backfill
				// them from the log before taking the live one.
				if entry.FinalizationIndex > lastDispatched+1 {
					for _, missed := range p.source.Logs(lastDispatched + 1) {
						if missed.FinalizationIndex <= lastDispatched {
							continue
						}
						if missed.FinalizationIndex >= entry.FinalizationIndex {
							break
						}
						p.dispatch(missed, workers)
						lastDispatched = missed.FinalizationIndex
					}
				}
				p.dispatch(entry, workers)
				lastDispatched = entry.FinalizationIndex
			}
		}

		cancel()
		reconnectAttempt++
		p.logger.WithField("attempt", reconnectAttempt).Warn("Event log subscription lost, reconnecting")
		if err := utils.SleepContext(ctx, p.config.ReconnectRetry.Interval(reconnectAttempt)); err != nil {
			return err
		}
	}
}

// dispatch decodes one log entry and hands its events to partition workers.
// A decode failure for a single line is logged and never fatal to the
// stream.
func (p *Pipeline) dispatch(entry ledger.LogEntry, workers []chan workItem) {
	if p.isSeen(entry.Signature) {
		p.cursor.Observe(entry.FinalizationIndex, 0)
		return
	}

	var items []workItem
	for _, line := range entry.Logs {
		event, err := DecodeLine(line)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"signature": entry.Signature,
				"error":     err.Error(),
			}).Warn("Skipping undecodable log line")
			continue
		}
		if event == nil {
			continue
		}
		items = append(items, workItem{
			index:     entry.FinalizationIndex,
			signature: entry.Signature,
			event:     event,
		})
	}

	p.cursor.Observe(entry.FinalizationIndex, len(items))
	for _, item := range items {
		workers[partition(item.event.PartitionKey(), len(workers))] <- item
	}
}

// applyWithRetry applies one event until it sticks. The cursor only
// acknowledges applied events: on cancellation the event is left pending so
// a restart replays it, and on retry exhaustion the worker holds position
// and keeps retrying at the capped interval rather than skipping the event.
func (p *Pipeline) applyWithRetry(ctx context.Context, item workItem) {
	for {
		err := p.config.ApplyRetry.Do(ctx, func() error {
			return p.apply(ctx, item)
		})
		if err == nil {
			p.markSeen(item.signature)
			p.cursor.Complete(item.index)
			return
		}
		if ctx.Err() != nil {
			return
		}
		p.logger.WithFields(logrus.Fields{
			"signature": item.signature,
			"index":     item.index,
			"error":     err.Error(),
		}).Error("Event still failing after retries, holding position")
		if utils.SleepContext(ctx, p.config.ApplyRetry.Interval(p.config.ApplyRetry.MaxAttempts)) != nil {
			return
		}
	}
}

func (p *Pipeline) apply(ctx context.Context, item workItem) error {
	switch event := item.event.(type) {
	case CertificateRegistered:
		return p.applyCertificateRegistered(ctx, event, item.signature)
	case LicencePurchased:
		return p.applyLicencePurchased(ctx, event, item.signature)
	case LicenceStatusChanged:
		return p.applyLicenceStatusChanged(ctx, event, item.signature)
	default:
		// Closed union; unreachable.
		return nil
	}
}

func (p *Pipeline) applyCertificateRegistered(ctx context.Context, event CertificateRegistered, signature string) error {
	splits := make([]models.SplitEntry, 0, len(event.RoyaltySplits))
	beneficiaries := make([]string, 0, len(event.RoyaltySplits))
	for _, s := range event.RoyaltySplits {
		splits = append(splits, models.SplitEntry{Beneficiary: s.Beneficiary, ShareBps: s.ShareBps})
		beneficiaries = append(beneficiaries, s.Beneficiary)
	}

	inserted, err := p.store.InsertCertificate(ctx, &models.Certificate{
		AssetID:           event.AssetID,
		Creator:           event.Creator,
		Title:             event.Title,
		LicenceTemplateID: event.LicenceTemplateID,
		Price:             event.Price,
		MetadataURIHash:   event.MetadataURIHash,
		RoyaltySplits:     models.SplitsJSONB(splits),
		Beneficiaries:     beneficiaries,
		TxSignature:       signature,
		LastUpdateAt:      p.now(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		p.logger.WithField("asset_id", event.AssetID).Debug("Certificate already indexed, ignoring")
	}
	return nil
}

func (p *Pipeline) applyLicencePurchased(ctx context.Context, event LicencePurchased, signature string) error {
	licence := &models.Licence{
		CertificateAssetID: event.CertificateAssetID,
		Buyer:              event.Buyer,
		PurchasePrice:      event.PurchasePrice,
		PurchaseTimestamp:  time.Unix(event.PurchaseTimestamp, 0).UTC(),
		Status:             models.LicenceStatusActive,
		TxSignature:        signature,
		LastUpdateAt:       p.now(),
	}
	if event.ExpiryTimestamp != nil {
		expiry := time.Unix(*event.ExpiryTimestamp, 0).UTC()
		licence.ExpiryTimestamp = &expiry
	}

	inserted, err := p.store.InsertLicence(ctx, licence)
	if err != nil {
		return err
	}
	if !inserted {
		p.logger.WithFields(logrus.Fields{
			"certificate_asset_id": event.CertificateAssetID,
			"buyer":                event.Buyer,
		}).Debug("Licence already indexed")
	}

	title := ""
	if cert, err := p.store.GetCertificate(ctx, event.CertificateAssetID); err == nil && cert != nil {
		title = cert.Title
	}

	// The royalty rows run regardless of whether the licence row was new:
	// a retry after a partial failure must finish the royalty side. The
	// (tx_signature, beneficiary) dedupe keeps reruns from double-writing,
	// and only rows actually created are announced.
	royalties := buildRoyaltyEvents(event, signature, title)
	newRows, err := p.store.InsertRoyaltyEvents(ctx, royalties)
	if err != nil {
		return err
	}

	if p.notifier != nil {
		for _, r := range newRows {
			p.notifier.NotifyRoyalty(r)
		}
	}
	return nil
}

func (p *Pipeline) applyLicenceStatusChanged(ctx context.Context, event LicenceStatusChanged, signature string) error {
	found, err := p.store.UpdateLicenceStatus(ctx,
		event.CertificateAssetID, event.Buyer,
		models.LicenceStatus(event.Status), signature, p.now())
	if err != nil {
		return err
	}
	if !found {
		return errLicenceNotIndexed
	}
	return nil
}

// buildRoyaltyEvents computes each beneficiary's share of a sale in integer
// currency units. Shares are floored; the rounding remainder goes to the
// first split.
func buildRoyaltyEvents(event LicencePurchased, signature, title string) []*models.RoyaltyEvent {
	events := make([]*models.RoyaltyEvent, 0, len(event.RoyaltySplits))
	var distributed uint64
	for _, split := range event.RoyaltySplits {
		amount := event.PurchasePrice * uint64(split.ShareBps) / 10000
		distributed += amount
		events = append(events, &models.RoyaltyEvent{
			BaseModel:          models.BaseModel{ID: uuid.New()},
			CertificateAssetID: event.CertificateAssetID,
			CertificateTitle:   title,
			Beneficiary:        split.Beneficiary,
			Amount:             amount,
			ShareBps:           split.ShareBps,
			Source:             models.RoyaltyEventSourceLicenceSale,
			TxSignature:        signature,
		})
	}
	if len(events) > 0 && distributed < event.PurchasePrice {
		events[0].Amount += event.PurchasePrice - distributed
	}
	return events
}

func (p *Pipeline) isSeen(signature string) bool {
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	_, ok := p.seen[signature]
	return ok
}

func (p *Pipeline) markSeen(signature string) {
	p.seenMu.Lock()
	defer p.seenMu.Unlock()
	p.seen[signature] = struct{}{}
}

func partition(key string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(workers))
}

// cursorTracker tracks the acknowledged position: the highest finalization
// index up to which every event has completed. Entries are observed in
// order but complete out of order across partitions.
type cursorTracker struct {
	mu       sync.Mutex
	position uint64
	pending  map[uint64]int
	observed []uint64
}

func newCursorTracker(position uint64) *cursorTracker {
	return &cursorTracker{
		position: position,
		pending:  make(map[uint64]int),
	}
}

// Observe registers an entry and its number of in-flight events. Entries
// with no events of interest acknowledge immediately.
func (c *cursorTracker) Observe(index uint64, events int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[index] = events
	c.observed = append(c.observed, index)
	c.advance()
}

// Complete marks one event of an entry as finished.
func (c *cursorTracker) Complete(index uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remaining, ok := c.pending[index]; ok && remaining > 0 {
		c.pending[index] = remaining - 1
	}
	c.advance()
}

// advance moves the position over the longest contiguous prefix of observed
// entries whose events have all completed. An index gap at the head means
// entries were never observed, so the position stays put until they are.
// Caller must hold c.mu.
func (c *cursorTracker) advance() {
	for len(c.observed) > 0 {
		head := c.observed[0]
		if head != c.position+1 || c.pending[head] > 0 {
			return
		}
		delete(c.pending, head)
		c.observed = c.observed[1:]
		c.position = head
	}
}

func (c *cursorTracker) Position() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}
