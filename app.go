package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	orchestratorx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/agents/specialist"
	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	knowledgex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/knowledge"
	ledgerx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/ledger"
	llmx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/llm"
	nodex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/nodes"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
	configx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/config"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
	qstashx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/qstash"
	redisx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/redis"
)

const (
	carryBackendMemory  = "memory"
	carryBackendRedis   = "redis"
	carryBackendUpstash = "upstash"
)

type CarryConfig struct {
	Backend   string        `split_words:"true" default:"memory"`
	KeyPrefix string        `split_words:"true" default:"bank:carry:"`
	TTL       time.Duration `envconfig:"TTL" default:"30m"`
}

type SpecialistConfig struct {
	CacheSize int `split_words:"true" default:"256"`
}

type app struct {
	orchestrator *orchestratorx.Orchestrator
	ledger       ledgerx.Store
	index        *knowledgex.Index
	llm          llmx.Config
	accountID    string

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logx.Warn().Err(err).Msg("close resource")
		}
	}
}

// openLedger opens the configured ledger and makes sure the demo account exists.
func openLedger(ctx context.Context) (ledgerx.Store, ledgerx.Config, func() error, error) {
	cfg, err := configx.New[ledgerx.Config]("LEDGER")
	if err != nil {
		return nil, ledgerx.Config{}, nil, err
	}
	store, closeFn, err := cfg.Open(ctx)
	if err != nil {
		return nil, ledgerx.Config{}, nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := ensureAccount(ctx, store, *cfg); err != nil {
		_ = closeFn()
		return nil, ledgerx.Config{}, nil, err
	}
	return store, *cfg, closeFn, nil
}

func ensureAccount(ctx context.Context, store ledgerx.Store, cfg ledgerx.Config) (ledgerx.Account, error) {
	acc, err := store.Account(ctx, cfg.AccountID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, ledgerx.ErrAccountNotFound) {
		return ledgerx.Account{}, err
	}
	acc, err = store.CreateAccount(ctx, ledgerx.Account{
		ID:      cfg.AccountID,
		Holder:  cfg.HolderName,
		Type:    ledgerx.DefaultAccountType,
		Balance: cfg.InitialBalance,
	})
	if errors.Is(err, ledgerx.ErrAccountExists) {
		return store.Account(ctx, cfg.AccountID)
	}
	return acc, err
}

func openIndex() (*knowledgex.Index, knowledgex.Config, error) {
	cfg, err := configx.New[knowledgex.Config]("KNOWLEDGE")
	if err != nil {
		return nil, knowledgex.Config{}, err
	}
	idx, err := knowledgex.Open(*cfg)
	if err != nil {
		return nil, knowledgex.Config{}, err
	}
	return idx, *cfg, nil
}

func openCarryStore(ctx context.Context) (statex.CarryStore, func() error, error) {
	cfg, err := configx.New[CarryConfig]("CARRY")
	if err != nil {
		return nil, nil, err
	}
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", carryBackendMemory:
		return statex.NewMemoryCarryStore(), noop, nil

	case carryBackendRedis:
		redisCfg, err := configx.New[redisx.Config]("REDIS")
		if err != nil {
			return nil, nil, err
		}
		client, err := redisCfg.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		store, err := statex.NewRedisCarryStore(client, cfg.KeyPrefix, cfg.TTL)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil

	case carryBackendUpstash:
		upstashCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, nil, err
		}
		store, err := statex.NewUpstashRedisStore(*upstashCfg,
			statex.WithKeyPrefix(cfg.KeyPrefix),
			statex.WithTTL(cfg.TTL),
		)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown carry backend %q", contractx.ErrConfiguration, cfg.Backend)
}

func openTurnSink() (contractx.TurnSink, error) {
	cfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := qstashx.NewClient(*cfg)
	if err != nil {
		return nil, err
	}
	return qstashx.NewTurnSink(client, cfg.Destination), nil
}

func buildApp(ctx context.Context) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	a.llm = *llmCfg

	routerCfg, err := configx.New[nodex.RouterConfig]("ROUTER")
	if err != nil {
		return nil, err
	}
	specCfg, err := configx.New[SpecialistConfig]("SPECIALIST")
	if err != nil {
		return nil, err
	}

	store, ledgerCfg, closeLedger, err := openLedger(ctx)
	if err != nil {
		return nil, err
	}
	a.ledger = store
	a.accountID = ledgerCfg.AccountID
	a.closers = append(a.closers, closeLedger)

	idx, knowledgeCfg, err := openIndex()
	if err != nil {
		return nil, err
	}
	a.index = idx
	a.closers = append(a.closers, idx.Close)

	carry, closeCarry, err := openCarryStore(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeCarry)

	sink, err := openTurnSink()
	if err != nil {
		return nil, err
	}

	registry, err := specialistx.NewRegistry(ctx, *llmCfg, specialistx.Deps{
		Ledger:    store,
		AccountID: ledgerCfg.AccountID,
		Retriever: idx,
		TopK:      knowledgeCfg.TopK,
		CacheSize: specCfg.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	orch, err := orchestratorx.New(ctx, orchestratorx.Deps{
		Classifier: registry.Classifier,
		Agents:     registry.Agents,
		Summarizer: registry.Summarizer,
		Store:      carry,
		Sink:       sink,
	}, *routerCfg)
	if err != nil {
		return nil, err
	}
	a.orchestrator = orch

	ok = true
	return a, nil
}
