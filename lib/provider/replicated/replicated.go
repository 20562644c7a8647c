package replicated

import (
	"context"
	"errors"
	"time"

	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
)

// KindRaftError is the error kind of consensus failures
const KindRaftError payload.ErrorKind = "RaftError"

var (
	retries = 5
	log     = logger.GetLogger("replicated")
)

// Provider implements provider.Provider on a Dragonboat shard
type Provider struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// New creates a provider for a shard that was started on nh with
// NewStateMachineFactory. timeout bounds every single raft request.
func New(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) *Provider {
	return &Provider{
		nh:      nh,
		shardID: shardID,
		cs:      nh.GetNoOPSession(shardID),
		timeout: timeout,
	}
}

// Init waits until the shard answers linearizable reads
func (r *Provider) Init(ctx context.Context, name string) error {
	for {
		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		_, err := r.nh.SyncRead(reqCtx, r.shardID, payload.NewSize())
		cancel()
		if err == nil {
			log.Infof("shard %d (%s) is ready", r.shardID, name)
			return nil
		}

		log.Debugf("shard %d (%s) not ready yet: %v", r.shardID, name, err)
		select {
		case <-ctx.Done():
			return payload.NewError(KindRaftError, "", "shard %d did not become ready: %v", r.shardID, ctx.Err())
		case <-time.After(r.timeout / 10):
		}
	}
}

// Close does nothing, the node host is owned by the caller
func (r *Provider) Close() error { return nil }

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// execute proposes mutations and reads everything else
func execute[P payload.Payload](ctx context.Context, r *Provider, p P) P {
	if p.Meta().Method.IsMutating() {
		r.propose(ctx, p)
	} else {
		r.read(ctx, p)
	}
	return p
}

// propose encodes p as a command and sends it via SyncPropose. The result
// of the state machine is merged into p.
func (r *Provider) propose(ctx context.Context, p payload.Payload) {
	m := p.Meta()
	cmd, err := EncodeCommand(p)
	if err != nil {
		m.Error = asError(err, m.Method)
		return
	}

	for i := 0; i < retries; i++ {
		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		res, err := r.nh.SyncPropose(reqCtx, r.cs, cmd)
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: system busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(r.timeout / 10)
			continue
		}
		if err != nil {
			m.Fail(KindRaftError, "propose failed: %v", err)
			return
		}
		if res.Value != resultApplied {
			m.Fail(payload.KindInternalError, "%s", string(res.Data))
			return
		}
		if err := payload.Merge(p, res.Data); err != nil {
			m.Error = asError(err, m.Method)
		}
		return
	}
	m.Fail(KindRaftError, "propose failed: system busy")
}

// read passes p to the local state machine via SyncRead
func (r *Provider) read(ctx context.Context, p payload.Payload) {
	m := p.Meta()
	for i := 0; i < retries; i++ {
		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		_, err := r.nh.SyncRead(reqCtx, r.shardID, p)
		cancel()

		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: system busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(r.timeout / 10)
			continue
		}
		if err != nil {
			var perr *payload.Error
			if errors.As(err, &perr) {
				m.Error = perr
				return
			}
			m.Fail(KindRaftError, "read failed: %v", err)
		}
		// the state machine filled in p itself
		return
	}
	m.Fail(KindRaftError, "read failed: system busy")
}

func asError(err error, m payload.Method) *payload.Error {
	var perr *payload.Error
	if errors.As(err, &perr) {
		return perr
	}
	return payload.NewError(payload.KindInternalError, m, "%v", err)
}
