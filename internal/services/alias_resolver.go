package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/scopes-backend/internal/data/repos/readmodel"
	types "github.com/yungbote/scopes-backend/internal/domain"
	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
	"github.com/yungbote/scopes-backend/internal/platform/logger"
)

// AliasResolver turns human-typed names into scope ids and fronts the alias
// commands. Reads go to whichever AliasRepo backs the namespace: the SQL
// table or the in-memory index.
type AliasResolver interface {
	// Resolve tries an exact match first, then a unique prefix.
	Resolve(ctx context.Context, input string) (scope.ID, error)
	// ListAliases returns the scope's aliases, canonical first.
	ListAliases(ctx context.Context, id scope.ID) ([]alias.Alias, error)
	// Complete lists names starting with prefix for shell completion.
	Complete(ctx context.Context, prefix string, limit int) ([]alias.Alias, error)

	AddCustomAlias(ctx context.Context, id scope.ID, name string) (alias.Alias, error)
	SetCanonical(ctx context.Context, id scope.ID, name string) (alias.Alias, error)
	RemoveAlias(ctx context.Context, name string) (alias.Alias, error)
	RenameAlias(ctx context.Context, oldName, newName string) (alias.Alias, error)
}

type aliasResolver struct {
	db      *gorm.DB
	log     *logger.Logger
	agg     domainagg.AliasAggregate
	aliases readmodel.AliasRepo
}

func NewAliasResolver(db *gorm.DB, baseLog *logger.Logger, agg domainagg.AliasAggregate, aliases readmodel.AliasRepo) AliasResolver {
	return &aliasResolver{
		db:      db,
		log:     baseLog.With("service", "AliasResolver"),
		agg:     agg,
		aliases: aliases,
	}
}

func (r *aliasResolver) dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: r.db}
}

func (r *aliasResolver) Resolve(ctx context.Context, input string) (scope.ID, error) {
	const op = "Scopes.AliasResolver.Resolve"
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" {
		return scope.ID{}, domainagg.Wrap(domainagg.CodeValidation, op, fmt.Errorf("%w: empty input", alias.ErrInvalidName))
	}

	exact, err := r.aliases.GetByName(r.dbc(ctx), needle)
	if err != nil {
		return scope.ID{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if exact != nil {
		return parseScopeID(op, exact.ScopeID)
	}

	rows, err := r.aliases.ListByPrefix(r.dbc(ctx), needle, 0)
	if err != nil {
		return scope.ID{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	switch len(rows) {
	case 0:
		return scope.ID{}, domainagg.Wrap(domainagg.CodeNotFound, op, fmt.Errorf("%w: %s", alias.ErrAliasNotFound, needle))
	case 1:
		return parseScopeID(op, rows[0].ScopeID)
	}

	amb := &alias.AmbiguousAliasError{Input: needle, Candidates: make([]alias.Candidate, 0, len(rows))}
	for _, row := range rows {
		id, err := scope.ParseID(row.ScopeID)
		if err != nil {
			return scope.ID{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		amb.Candidates = append(amb.Candidates, alias.Candidate{Name: alias.Name(row.AliasName), ScopeID: id})
	}
	sort.Slice(amb.Candidates, func(i, j int) bool { return amb.Candidates[i].Name < amb.Candidates[j].Name })
	r.log.Debug("ambiguous alias", "input", needle, "candidates", len(amb.Candidates))
	return scope.ID{}, domainagg.Wrap(domainagg.CodeValidation, op, amb)
}

func (r *aliasResolver) ListAliases(ctx context.Context, id scope.ID) ([]alias.Alias, error) {
	const op = "Scopes.AliasResolver.ListAliases"
	if id.IsZero() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing scope_id", nil)
	}
	rows, err := r.aliases.ListByScope(r.dbc(ctx), id.String())
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return aliasesFromRows(op, rows)
}

func (r *aliasResolver) Complete(ctx context.Context, prefix string, limit int) ([]alias.Alias, error) {
	const op = "Scopes.AliasResolver.Complete"
	rows, err := r.aliases.ListByPrefix(r.dbc(ctx), strings.ToLower(strings.TrimSpace(prefix)), limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return aliasesFromRows(op, rows)
}

func (r *aliasResolver) AddCustomAlias(ctx context.Context, id scope.ID, name string) (alias.Alias, error) {
	return unpackAlias(r.agg.AddCustomAlias(ctx, domainagg.AddAliasInput{ScopeID: id, Name: name}))
}

func (r *aliasResolver) SetCanonical(ctx context.Context, id scope.ID, name string) (alias.Alias, error) {
	return unpackAlias(r.agg.SetCanonical(ctx, domainagg.SetCanonicalAliasInput{ScopeID: id, Name: name}))
}

func (r *aliasResolver) RemoveAlias(ctx context.Context, name string) (alias.Alias, error) {
	return unpackAlias(r.agg.RemoveAlias(ctx, domainagg.RemoveAliasInput{Name: name}))
}

func (r *aliasResolver) RenameAlias(ctx context.Context, oldName, newName string) (alias.Alias, error) {
	return unpackAlias(r.agg.RenameAlias(ctx, domainagg.RenameAliasInput{OldName: oldName, NewName: newName}))
}

func unpackAlias(res domainagg.AliasWriteResult, err error) (alias.Alias, error) {
	if err != nil {
		return alias.Alias{}, err
	}
	return res.Alias, nil
}

func parseScopeID(op, raw string) (scope.ID, error) {
	id, err := scope.ParseID(raw)
	if err != nil {
		return scope.ID{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return id, nil
}

func aliasesFromRows(op string, rows []*types.ScopeAlias) ([]alias.Alias, error) {
	out := make([]alias.Alias, 0, len(rows))
	for _, row := range rows {
		a, err := aliasFromRow(row)
		if err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func aliasFromRow(row *types.ScopeAlias) (alias.Alias, error) {
	id, err := alias.ParseID(row.ID)
	if err != nil {
		return alias.Alias{}, err
	}
	scopeID, err := scope.ParseID(row.ScopeID)
	if err != nil {
		return alias.Alias{}, err
	}
	return alias.Alias{
		ID:          id,
		Name:        alias.Name(row.AliasName),
		ScopeID:     scopeID,
		IsCanonical: row.IsCanonical,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
