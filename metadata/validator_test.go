package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/diag"
)

func codesOf(diags []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

func findCode(t *testing.T, diags []diag.Diagnostic, code diag.Code) diag.Diagnostic {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			return d
		}
	}
	t.Fatalf("no diagnostic with code %s in %v", code, codesOf(diags))
	return diag.Diagnostic{}
}

type noOperation struct {
	OrderID string `wire:"order_id"`
}

type emptyOperation struct {
	OrderID string `wire:"order_id"`
}

func (emptyOperation) Operation() contract.Operation {
	return contract.Operation{}
}

func TestValidateMissingOperation(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[noOperation](), Response: TypeOf[contract.Empty]()})
	d := findCode(t, diags, diag.CodeMissingOperation)
	assert.Equal(t, diag.SeverityError, d.Severity)
	assert.Contains(t, d.Message, "does not declare")

	diags = Validate(Pair{Request: TypeOf[emptyOperation](), Response: TypeOf[contract.Empty]()})
	d = findCode(t, diags, diag.CodeMissingOperation)
	assert.Contains(t, d.Message, "empty")
}

type pingRequest struct {
	Token string `wire:"token"`
}

func (pingRequest) Operation() contract.Operation {
	return contract.Operation{ID: "gateway.ping", Mode: contract.OneWay}
}

type pingResponse struct {
	Pong bool `wire:"pong"`
}

func TestValidateInteractionMode(t *testing.T) {
	// One-way paired with a real response type is a violation.
	diags := Validate(Pair{Request: TypeOf[pingRequest](), Response: TypeOf[pingResponse]()})
	d := findCode(t, diags, diag.CodeInteractionMode)
	assert.Equal(t, "pingResponse", d.Context["response"])

	// The sentinel is the only legal pairing.
	diags = Validate(Pair{Request: TypeOf[pingRequest](), Response: TypeOf[contract.Empty]()})
	assert.Empty(t, diags)
}

type level3 struct {
	Leaf level4 `wire:"leaf"`
}
type level4 struct {
	Value string `wire:"value"`
}
type level2 struct {
	Next level3 `wire:"next"`
}
type level1 struct {
	Next level2 `wire:"next"`
}
type deepRequest struct {
	Next level1 `wire:"next"`
}

func (deepRequest) Operation() contract.Operation {
	return contract.Operation{ID: "deep.request"}
}

func TestValidateNestingDepth(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[deepRequest](), Response: TypeOf[contract.Empty]()})
	d := findCode(t, diags, diag.CodeNestingTooDeep)
	assert.Equal(t, "Next.Next.Next.Leaf", d.Path)
	assert.Equal(t, 4, d.Context["depth"])
	assert.Equal(t, MaxNestingDepth, d.Context["max"])
}

type okDepthRequest struct {
	Next level2 `wire:"next"` // bottoms out exactly at depth 3
}

func (okDepthRequest) Operation() contract.Operation {
	return contract.Operation{ID: "ok.depth"}
}

func TestValidateDepthAtLimit(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[okDepthRequest](), Response: TypeOf[contract.Empty]()})
	assert.Empty(t, diags, "depth 3 is legal, got %v", codesOf(diags))
}

type cycleA struct {
	B *cycleB `wire:"b"`
}

func (cycleA) Operation() contract.Operation {
	return contract.Operation{ID: "cycle.a"}
}

type cycleB struct {
	A *cycleA `wire:"a"`
}

func TestValidateCyclicReference(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[cycleA](), Response: TypeOf[contract.Empty]()})
	d := findCode(t, diags, diag.CodeCyclicReference)
	assert.Equal(t, "cycleA", d.Context["type"])
}

type siblingShared struct {
	Billing  address `wire:"billing"`
	Shipping address `wire:"shipping"`
}

type address struct {
	City string `wire:"city"`
}

func (siblingShared) Operation() contract.Operation {
	return contract.Operation{ID: "sibling.shared"}
}

func TestValidateSiblingReuseIsNotACycle(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[siblingShared](), Response: TypeOf[contract.Empty]()})
	assert.Empty(t, diags, "got %v", codesOf(diags))
}

type leakyRequest struct {
	CardNumber string `wire:",encrypted"`
}

func (leakyRequest) Operation() contract.Operation {
	return contract.Operation{ID: "leaky.request"}
}

func TestValidateEncryptedNeedsExplicitName(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[leakyRequest](), Response: TypeOf[contract.Empty]()})
	d := findCode(t, diags, diag.CodeEncryptedNeedsName)
	assert.Equal(t, diag.SeverityCritical, d.Severity)
	assert.Equal(t, "CardNumber", d.Path)
}

type unnamedComplex struct {
	Card  card       `wire:",required"`
	Items []lineItem `wire:""`
	SKUs  []string   // collection of scalars may derive its name
}

func (unnamedComplex) Operation() contract.Operation {
	return contract.Operation{ID: "unnamed.complex"}
}

func TestValidateComplexNeedsExplicitName(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[unnamedComplex](), Response: TypeOf[contract.Empty]()})

	var complexDiags []diag.Diagnostic
	for _, d := range diags {
		if d.Code == diag.CodeComplexNeedsName {
			complexDiags = append(complexDiags, d)
		}
	}
	require.Len(t, complexDiags, 2, "nested object and collection-of-objects, not scalar collections")
	assert.Equal(t, "Card", complexDiags[0].Path)
	assert.Equal(t, "Items", complexDiags[1].Path)
}

type pinBlock struct {
	Value string `wire:"value"`
}

type vaultRequest struct {
	PIN    pinBlock       `wire:"pin,encrypted"`
	Extra  map[string]any `wire:"extra,encrypted"`
	Tokens []string       `wire:"tokens,encrypted"`
	Cards  []card         `wire:"cards,encrypted"`
}

func (vaultRequest) Operation() contract.Operation {
	return contract.Operation{ID: "vault.store"}
}

func TestValidateEncryptedComplexShapes(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[vaultRequest](), Response: TypeOf[contract.Empty]()})

	var paths []string
	for _, d := range diags {
		if d.Code == diag.CodeEncryptedNotScalar {
			assert.Equal(t, diag.SeverityCritical, d.Severity)
			paths = append(paths, d.Path)
		}
	}
	assert.Equal(t, []string{"PIN", "Extra", "Cards"}, paths,
		"nested objects, maps and collections of objects cannot encrypt; collections of strings can")
}

type driftRequest struct {
	OrderID string
	OrderId string
	Amount  int64 `wire:"amt"`
	Total   int64 `wire:"amt"`
}

func (driftRequest) Operation() contract.Operation {
	return contract.Operation{ID: "drift.request"}
}

func TestValidateDuplicateWireKeys(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[driftRequest](), Response: TypeOf[contract.Empty]()})

	var dups []diag.Diagnostic
	for _, d := range diags {
		if d.Code == diag.CodeDuplicateWireKey {
			dups = append(dups, d)
		}
	}
	require.Len(t, dups, 2, "one derived collision, one explicit collision")

	assert.Equal(t, "OrderId", dups[0].Path)
	assert.Equal(t, "order_id", dups[0].Context["key"])
	assert.Equal(t, "OrderID", dups[0].Context["previous"])
	assert.Equal(t, "Total", dups[1].Path)
	assert.Equal(t, "amt", dups[1].Context["key"])
	assert.False(t, dups[0].Severity.Blocks(), "drift is a warning, not a build failure")
}

type okRequest struct {
	OrderID string `wire:"order_id,required"`
	Amount  int64  `wire:"amt"`
}

func (okRequest) Operation() contract.Operation {
	return contract.Operation{ID: "ok.request"}
}

type leakyResponse struct {
	Account string `wire:",encrypted"`
}

func TestValidateResponseGraph(t *testing.T) {
	diags := Validate(Pair{Request: TypeOf[okRequest](), Response: TypeOf[leakyResponse]()})
	d := findCode(t, diags, diag.CodeEncryptedNeedsName)
	assert.Equal(t, "leakyResponse", d.Contract)
}

func TestValidateAll(t *testing.T) {
	report := ValidateAll(
		Pair{Request: TypeOf[okRequest](), Response: TypeOf[contract.Empty]()},
		Pair{Request: TypeOf[leakyRequest](), Response: TypeOf[contract.Empty]()},
		Pair{Request: TypeOf[deepRequest](), Response: TypeOf[contract.Empty]()},
	)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.True(t, report.HasBlocking())
}

func TestValidateStrict(t *testing.T) {
	require.NoError(t, ValidateStrict(Pair{Request: TypeOf[okRequest](), Response: TypeOf[contract.Empty]()}))

	err := ValidateStrict(Pair{Request: TypeOf[leakyRequest](), Response: TypeOf[contract.Empty]()})
	require.Error(t, err)
	ce, ok := err.(*diag.ContractError)
	require.True(t, ok)
	assert.Equal(t, "leakyRequest", ce.Contract)
	assert.Equal(t, diag.CodeEncryptedNeedsName, ce.First().Code)
}
