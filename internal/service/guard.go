package service

import (
	"context"
	"sync"
	"time"

	apperrors "event-ticket-ledger/pkg/app_errors"
)

type ledgerCallKey struct{}

// DefaultCallbackWait 外部協作者執行期間，新進呼叫最多等待的時間
const DefaultCallbackWait = 5 * time.Second

// guard 不可重入鎖：帶著帳本標記的 ctx 直接拒絕；
// 外部收款方或資產登錄執行期間（outbound）新進的呼叫最多等待 wait，逾時視為重入
type guard struct {
	sem  chan struct{}
	wait time.Duration

	mu       sync.Mutex
	outbound int
	idle     chan struct{} // outbound 歸零時關閉
}

func newGuard(wait time.Duration) *guard {
	if wait <= 0 {
		wait = DefaultCallbackWait
	}
	return &guard{sem: make(chan struct{}, 1), wait: wait}
}

// insideLedgerCall 判斷 ctx 是否來自一個仍在執行中的帳本操作
func insideLedgerCall(ctx context.Context) bool {
	return ctx.Value(ledgerCallKey{}) != nil
}

func markLedgerCall(ctx context.Context) context.Context {
	return context.WithValue(ctx, ledgerCallKey{}, true)
}

// calling 回傳目前外部呼叫的結束訊號；沒有外部呼叫時為 nil
func (g *guard) calling() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.outbound == 0 {
		return nil
	}
	return g.idle
}

// callOut 標記外部協作者執行期間
func (g *guard) callOut(fn func() error) error {
	g.mu.Lock()
	if g.outbound == 0 {
		g.idle = make(chan struct{})
	}
	g.outbound++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.outbound--
		if g.outbound == 0 {
			close(g.idle)
		}
		g.mu.Unlock()
	}()
	return fn()
}

// admit 用於不持鎖的操作：外部呼叫期間等待其結束，逾時則拒絕
func (g *guard) admit(ctx context.Context) (context.Context, error) {
	if insideLedgerCall(ctx) {
		return nil, apperrors.ErrReentrantCall
	}
	if done := g.calling(); done != nil {
		timer := time.NewTimer(g.wait)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			return nil, apperrors.ErrReentrantCall
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return markLedgerCall(ctx), nil
}

// enter 取得資金操作鎖；重入判斷交給 admit
func (g *guard) enter(ctx context.Context) (context.Context, func(), error) {
	marked, err := g.admit(ctx)
	if err != nil {
		return nil, nil, err
	}
	select {
	case g.sem <- struct{}{}:
		return marked, func() { <-g.sem }, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
