// Package ledger applies operations to the registry, sales engine and
// payment tokens one at a time. Each operation runs on a storage overlay
// that is committed on success and discarded on any error.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/nfb-ledger/internal/access"
	"github.com/Klingon-tech/nfb-ledger/internal/events"
	klog "github.com/Klingon-tech/nfb-ledger/internal/log"
	"github.com/Klingon-tech/nfb-ledger/internal/paytoken"
	"github.com/Klingon-tech/nfb-ledger/internal/registry"
	"github.com/Klingon-tech/nfb-ledger/internal/sales"
	"github.com/Klingon-tech/nfb-ledger/internal/storage"
	"github.com/Klingon-tech/nfb-ledger/pkg/crypto"
	"github.com/Klingon-tech/nfb-ledger/pkg/types"
	"github.com/rs/zerolog"
)

// RegistryRef is the address the registry is reachable under as a minter.
var RegistryRef = crypto.DeriveAddress("nfb", "registry")

// Storage namespaces.
var (
	nsAccess   = []byte("acl/")
	nsRegistry = []byte("reg/")
	nsSales    = []byte("sale/")
	nsTokens   = []byte("tok/")
	nsBank     = []byte("bank/")
	nsEvents   = []byte("ev/")
	nsMeta     = []byte("meta/")
)

var keyGenesis = []byte("genesis")

// Genesis seeds a fresh ledger.
type Genesis struct {
	// Admins get the admin and manager roles.
	Admins []types.Address
	// Alloc credits native balances.
	Alloc map[types.Address]uint64
}

// Ledger serializes operations over a root DB.
type Ledger struct {
	mu        sync.RWMutex
	db        storage.DB
	clock     func() time.Time
	maxMint   uint64
	resolvers map[types.Address]registry.Resolver
	handlers  map[types.Address]sales.CustomHandler
	logger    zerolog.Logger
}

// State is the set of components bound to one operation's overlay.
type State struct {
	DB       storage.DB
	Access   *access.Store
	Registry *registry.Registry
	Sales    *sales.Engine
	Tokens   *paytoken.Ledger
	Bank     *paytoken.Bank
	Events   *events.Journal
}

// New opens a ledger on db, applying genesis if db is empty.
func New(db storage.DB, genesis Genesis) (*Ledger, error) {
	l := &Ledger{
		db:        db,
		clock:     time.Now,
		resolvers: make(map[types.Address]registry.Resolver),
		handlers:  make(map[types.Address]sales.CustomHandler),
		logger:    klog.Ledger,
	}
	if err := l.applyGenesis(genesis); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	return l, nil
}

func (l *Ledger) applyGenesis(g Genesis) error {
	meta := storage.NewPrefixDB(l.db, nsMeta)
	done, err := meta.Has(keyGenesis)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	return l.Update("genesis", func(st *State) error {
		for _, a := range g.Admins {
			if err := st.Access.Bootstrap(a, access.RoleAdmin, access.RoleManager); err != nil {
				return fmt.Errorf("admin %s: %w", a, err)
			}
		}
		if err := st.Access.Bootstrap(sales.EngineAccount, access.RoleMinter); err != nil {
			return err
		}
		for addr, amt := range g.Alloc {
			if err := st.Bank.Allocate(addr, amt); err != nil {
				return fmt.Errorf("alloc %s: %w", addr, err)
			}
		}
		l.logger.Info().Int("admins", len(g.Admins)).Int("alloc", len(g.Alloc)).Msg("Genesis applied")
		return storage.NewPrefixDB(st.DB, nsMeta).Put(keyGenesis, []byte{1})
	})
}

// SetClock replaces the time source for availability checks.
func (l *Ledger) SetClock(clock func() time.Time) {
	l.mu.Lock()
	l.clock = clock
	l.mu.Unlock()
}

// SetMintLimit caps the tokens one mint or purchase may create.
// Zero means no cap.
func (l *Ledger) SetMintLimit(n uint64) {
	l.mu.Lock()
	l.maxMint = n
	l.mu.Unlock()
}

// MintLimit returns the per-call mint cap.
func (l *Ledger) MintLimit() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.maxMint
}

// RegisterResolver makes a metadata resolver reachable under ref.
func (l *Ledger) RegisterResolver(ref types.Address, r registry.Resolver) {
	l.mu.Lock()
	l.resolvers[ref] = r
	l.mu.Unlock()
}

// RegisterHandler makes a custom purchase handler reachable under ref.
func (l *Ledger) RegisterHandler(ref types.Address, h sales.CustomHandler) {
	l.mu.Lock()
	l.handlers[ref] = h
	l.mu.Unlock()
}

// Resolvers returns the registered resolver references.
func (l *Ledger) Resolvers() []types.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	refs := make([]types.Address, 0, len(l.resolvers))
	for ref := range l.resolvers {
		refs = append(refs, ref)
	}
	return refs
}

// Handlers returns the registered handler references.
func (l *Ledger) Handlers() []types.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	refs := make([]types.Address, 0, len(l.handlers))
	for ref := range l.handlers {
		refs = append(refs, ref)
	}
	return refs
}

// Update runs fn as one atomic operation. Writes made through the State
// become visible only if fn returns nil.
func (l *Ledger) Update(op string, fn func(st *State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	o := storage.NewOverlay(l.db)
	if err := fn(l.bind(o)); err != nil {
		o.Discard()
		l.logger.Debug().Str("op", op).Err(err).Msg("Operation rejected")
		return err
	}
	if err := o.Commit(); err != nil {
		l.logger.Error().Str("op", op).Err(err).Msg("Commit failed")
		return fmt.Errorf("commit %s: %w", op, err)
	}
	l.logger.Debug().Str("op", op).Msg("Operation committed")
	return nil
}

// View runs fn against the current state. Writes are dropped.
func (l *Ledger) View(fn func(st *State) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o := storage.NewOverlay(l.db)
	defer o.Discard()
	return fn(l.bind(o))
}

func (l *Ledger) bind(db storage.DB) *State {
	journal := events.NewJournal(storage.NewPrefixDB(db, nsEvents))
	acl := access.NewStore(storage.NewPrefixDB(db, nsAccess), journal)
	tokens := paytoken.NewLedger(storage.NewPrefixDB(db, nsTokens), journal)
	bank := paytoken.NewBank(paytoken.NewLedger(storage.NewPrefixDB(db, nsBank), journal))

	reg := registry.New(storage.NewPrefixDB(db, nsRegistry), acl, journal)
	reg.SetClock(l.clock)
	reg.SetMintLimit(l.maxMint)
	reg.SetResolvers(resolverDir{l})

	st := &State{
		DB:       db,
		Access:   acl,
		Registry: reg,
		Tokens:   tokens,
		Bank:     bank,
		Events:   journal,
	}
	st.Sales = sales.New(storage.NewPrefixDB(db, nsSales), acl, bank, &salesDir{l: l, st: st}, journal)
	return st
}

type resolverDir struct{ l *Ledger }

func (d resolverDir) Resolver(ref types.Address) (registry.Resolver, error) {
	r, ok := d.l.resolvers[ref]
	if !ok {
		return nil, fmt.Errorf("resolver %s: %w", ref, registry.ErrResolverNotSet)
	}
	return r, nil
}

type salesDir struct {
	l  *Ledger
	st *State
}

func (d *salesDir) Minter(ref types.Address) (sales.Minter, error) {
	if ref != RegistryRef {
		return nil, fmt.Errorf("minter %s: %w", ref, sales.ErrCollaboratorNotFound)
	}
	return d.st.Registry, nil
}

func (d *salesDir) PaymentToken(ref types.Address) (sales.PaymentToken, error) {
	return d.st.Tokens.Token(ref)
}

func (d *salesDir) CustomHandler(ref types.Address) (sales.CustomHandler, error) {
	h, ok := d.l.handlers[ref]
	if !ok {
		return nil, fmt.Errorf("handler %s: %w", ref, sales.ErrCollaboratorNotFound)
	}
	return h, nil
}

// Info summarizes ledger state.
type Info struct {
	RegistryRef   types.Address `json:"registryRef"`
	EngineAccount types.Address `json:"engineAccount"`
	Series        int           `json:"series"`
	SaleConfigs   int           `json:"saleConfigs"`
	PaymentTokens int           `json:"paymentTokens"`
	Events        uint64        `json:"events"`
	NativeSupply  uint64        `json:"nativeSupply"`
	EngineNative  uint64        `json:"engineNative"`
	Time          uint64        `json:"time"`
}

// Info returns a summary of st.
func (st *State) Info() (*Info, error) {
	series, err := st.Registry.ListSeries()
	if err != nil {
		return nil, err
	}
	configs, err := st.Sales.ListSaleConfigs()
	if err != nil {
		return nil, err
	}
	tokens, err := st.Tokens.List()
	if err != nil {
		return nil, err
	}
	head, err := st.Events.Head()
	if err != nil {
		return nil, err
	}
	supply, err := st.Bank.Supply()
	if err != nil {
		return nil, err
	}
	engine, err := st.Bank.BalanceOf(sales.EngineAccount)
	if err != nil {
		return nil, err
	}
	return &Info{
		RegistryRef:   RegistryRef,
		EngineAccount: sales.EngineAccount,
		Series:        len(series),
		SaleConfigs:   len(configs),
		PaymentTokens: len(tokens),
		Events:        head,
		NativeSupply:  supply,
		EngineNative:  engine,
		Time:          st.Registry.Now(),
	}, nil
}
