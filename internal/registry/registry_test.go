package registry_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"enrichpipe.io/engine/internal/adapter"
	"enrichpipe.io/engine/internal/registry"
)

func TestRegistry_LookupUnknownOperation_ReturnsFalse(t *testing.T) {
	r := registry.New()
	_, ok := r.Lookup("nope.nope")
	require.False(t, ok)
}

func TestRegistry_RegisterThenLookup(t *testing.T) {
	r := registry.New()
	called := false
	r.Register(registry.OperationDef{
		ID: "test.op",
		Executor: func(ctx context.Context, runID uuid.UUID, input adapter.Input) adapter.Envelope {
			called = true
			return adapter.Found("test.op", map[string]any{"ok": true})
		},
	})

	def, ok := r.Lookup("test.op")
	require.True(t, ok)

	env := def.Executor(context.Background(), uuid.New(), adapter.NewInput(nil))
	require.True(t, called)
	require.Equal(t, "found", env.Status)
}

func TestRegisterBuiltins_AllTenOperationsRegistered(t *testing.T) {
	r := registry.New()
	registry.RegisterBuiltins(r)

	expected := []string{
		"company.search.blitzapi",
		"company.enrich.tech_stack",
		"company.research.similar_companies",
		"company.derive.customers",
		"company.derive.champions",
		"person.enrich.contact",
		"person.resolve.alumni",
		"job.search.theirstack",
		"job.validate.posting",
		"company.signal.vc_funding",
	}
	for _, id := range expected {
		_, ok := r.Lookup(id)
		require.True(t, ok, "expected operation %q to be registered", id)
	}
	require.Len(t, r.IDs(), len(expected))
}

func TestBuiltins_MissingRequiredInput_ReturnsMissingInputsEnvelope(t *testing.T) {
	r := registry.New()
	registry.RegisterBuiltins(r)

	def, ok := r.Lookup("company.search.blitzapi")
	require.True(t, ok)

	env := def.Executor(context.Background(), uuid.New(), adapter.NewInput(map[string]any{}))
	require.Equal(t, "failed", env.Status)
	require.Contains(t, env.MissingInputs, "domain")
}

func TestBuiltins_FanOutOperations_HaveFanOutKey(t *testing.T) {
	r := registry.New()
	registry.RegisterBuiltins(r)

	fanOut := map[string]string{
		"company.research.similar_companies": "similar_companies",
		"company.derive.customers":           "customers",
		"company.derive.champions":           "champions",
		"person.resolve.alumni":              "alumni",
		"job.search.theirstack":              "results",
	}
	for id, key := range fanOut {
		def, ok := r.Lookup(id)
		require.True(t, ok)
		require.Equal(t, key, def.FanOutKey, "operation %q", id)
	}

	notFanOut := []string{"company.search.blitzapi", "company.enrich.tech_stack", "person.enrich.contact", "job.validate.posting", "company.signal.vc_funding"}
	for _, id := range notFanOut {
		def, ok := r.Lookup(id)
		require.True(t, ok)
		require.Empty(t, def.FanOutKey, "operation %q", id)
	}
}

func TestBuiltins_SimilarCompanies_ProducesFanOutCollection(t *testing.T) {
	r := registry.New()
	registry.RegisterBuiltins(r)

	def, _ := r.Lookup("company.research.similar_companies")
	env := def.Executor(context.Background(), uuid.New(), adapter.NewInput(map[string]any{"domain": "acme.com"}))
	require.Equal(t, "found", env.Status)
	collection, ok := env.Output["similar_companies"].([]map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, collection)
}
