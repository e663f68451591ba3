package codec

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrail/wirecontract/contract"
	"github.com/payrail/wirecontract/diag"
	"github.com/payrail/wirecontract/naming"
)

// prefixCrypto is a deliberately non-identity cipher for codec tests.
type prefixCrypto struct{}

func (prefixCrypto) Encrypt(s string) (string, error) { return "enc(" + s + ")", nil }

func (prefixCrypto) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "enc(") || !strings.HasSuffix(s, ")") {
		return "", fmt.Errorf("not a ciphertext: %q", s)
	}
	return strings.TrimSuffix(strings.TrimPrefix(s, "enc("), ")"), nil
}

func testEnv() *Env {
	return &Env{Naming: naming.SnakeCase, Encryptor: prefixCrypto{}, Decryptor: prefixCrypto{}}
}

func codeOf(t *testing.T, err error) diag.Code {
	t.Helper()
	var ce *Error
	require.ErrorAs(t, err, &ce)
	return ce.Code
}

type paymentRequest struct {
	OrderID    string `wire:"order_id,required"`
	Amount     *int64 `wire:"amt,required"`
	CardNumber string `wire:"card_no,encrypted"`
}

func (paymentRequest) Operation() contract.Operation {
	return contract.Operation{ID: "payment.authorize", Method: "POST"}
}

func amount(v int64) *int64 { return &v }

func TestProjectScenarioA(t *testing.T) {
	e := NewEngine(nil)
	wire, err := e.Project(paymentRequest{
		OrderID:    "A1",
		Amount:     amount(100),
		CardNumber: "4111111111111111",
	}, testEnv())
	require.NoError(t, err)

	assert.Equal(t, "A1", wire["order_id"])
	assert.Equal(t, int64(100), wire["amt"])
	assert.NotEqual(t, "4111111111111111", wire["card_no"], "ciphertext must differ from plaintext")
	assert.Equal(t, "enc(4111111111111111)", wire["card_no"])
	assert.Len(t, wire, 3)
}

func TestProjectMissingRequired(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Project(paymentRequest{OrderID: "A1", CardNumber: "4111111111111111"}, testEnv())
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, diag.CodeMissingRequiredField, ce.Code)
	assert.Equal(t, "Amount", ce.Field, "the error names the exact property")
	assert.Equal(t, "paymentRequest", ce.Contract)
}

func TestProjectEncryptorMissing(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Project(paymentRequest{
		OrderID: "A1", Amount: amount(100), CardNumber: "4111111111111111",
	}, &Env{Naming: naming.SnakeCase})
	assert.Equal(t, diag.CodeEncryptorMissing, codeOf(t, err))
}

type optionalFields struct {
	OrderID string  `wire:"order_id,required"`
	Note    *string `wire:"note"`
	Tags    []string
}

func (optionalFields) Operation() contract.Operation {
	return contract.Operation{ID: "optional.fields"}
}

func TestProjectOmitsNullOptionals(t *testing.T) {
	e := NewEngine(nil)
	wire, err := e.Project(optionalFields{OrderID: "A2"}, testEnv())
	require.NoError(t, err)

	_, hasNote := wire["note"]
	assert.False(t, hasNote, "null optional fields omit the key entirely")
	_, hasTags := wire["tags"]
	assert.False(t, hasTags, "nil slices are absent too")
	assert.Equal(t, map[string]any{"order_id": "A2"}, wire)
}

type vaultEntry struct {
	PIN string `wire:"pin"`
}

type secretsRequest struct {
	OrderID string         `wire:"order_id"`
	Secrets vaultEntry     `wire:"secrets,encrypted"`
	Extra   map[string]any `wire:"extra,encrypted"`
}

func (secretsRequest) Operation() contract.Operation {
	return contract.Operation{ID: "secrets.store"}
}

func TestProjectEncryptedComplexShapes(t *testing.T) {
	// Encryption has no string payload to cover on complex shapes, so the
	// contents must never reach the wire in plaintext, cipher or not.
	e := NewEngine(nil)
	src := secretsRequest{
		OrderID: "O1",
		Secrets: vaultEntry{PIN: "1234"},
		Extra:   map[string]any{"cvv": 999},
	}

	wire, err := e.Project(src, &Env{Naming: naming.SnakeCase})
	assert.Equal(t, diag.CodeTypeMismatch, codeOf(t, err))
	assert.Nil(t, wire)

	_, err = e.Project(src, testEnv())
	assert.Equal(t, diag.CodeTypeMismatch, codeOf(t, err),
		"a configured cipher does not legitimize the shape")
}

type tokenRequest struct {
	Tokens []string `wire:"tokens,encrypted"`
}

func (tokenRequest) Operation() contract.Operation {
	return contract.Operation{ID: "tokens.store"}
}

func TestProjectEncryptedStringCollection(t *testing.T) {
	e := NewEngine(nil)
	wire, err := e.Project(tokenRequest{Tokens: []string{"t1", "t2"}}, testEnv())
	require.NoError(t, err)
	assert.Equal(t, []any{"enc(t1)", "enc(t2)"}, wire["tokens"], "elements encrypt one by one")
}

func TestProjectEncryptionFailure(t *testing.T) {
	e := NewEngine(nil)
	env := &Env{
		Naming: naming.SnakeCase,
		Encryptor: contract.EncryptorFunc(func(string) (string, error) {
			return "", errors.New("kms unavailable")
		}),
	}
	_, err := e.Project(paymentRequest{OrderID: "A1", Amount: amount(1), CardNumber: "4111"}, env)
	assert.Equal(t, diag.CodeEncryptionFailed, codeOf(t, err),
		"a failing cipher is not the same defect as a missing one")

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Error(t, ce.Unwrap())
}

type basket struct {
	OrderID string         `wire:"order_id,required"`
	Items   []item         `wire:"items"`
	Meta    map[string]any `wire:"meta"`
	Counts  []int          `wire:"counts"`
}

type item struct {
	SKU string `wire:"sku"`
	Qty int    `wire:"qty"`
}

func (basket) Operation() contract.Operation {
	return contract.Operation{ID: "basket.submit"}
}

func TestProjectNestedAndCollections(t *testing.T) {
	e := NewEngine(nil)
	wire, err := e.Project(basket{
		OrderID: "B1",
		Items:   []item{{SKU: "sku-1", Qty: 2}, {SKU: "sku-2", Qty: 1}},
		Meta:    map[string]any{"channel": "web"},
		Counts:  []int{1, 2, 3},
	}, testEnv())
	require.NoError(t, err)

	items, ok := wire["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]any{"sku": "sku-1", "qty": 2}, items[0])

	assert.Equal(t, map[string]any{"channel": "web"}, wire["meta"], "maps pass through unchanged")
	assert.Equal(t, []any{1, 2, 3}, wire["counts"])
}

func TestProjectCollectionTooLarge(t *testing.T) {
	e := NewEngine(nil)
	b := basket{OrderID: "B2", Counts: make([]int, MaxCollectionSize+1)}
	_, err := e.Project(b, testEnv())
	assert.Equal(t, diag.CodeCollectionTooLarge, codeOf(t, err))
}

type matrixRequest struct {
	Rows [][]int `wire:"rows"`
}

func (matrixRequest) Operation() contract.Operation {
	return contract.Operation{ID: "matrix.submit"}
}

func TestProjectNestedLists(t *testing.T) {
	e := NewEngine(nil)
	wire, err := e.Project(matrixRequest{Rows: [][]int{{1, 2}, {3}}}, testEnv())
	require.NoError(t, err)

	rows, ok := wire["rows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, []any{1, 2}, rows[0])
	assert.Equal(t, []any{3}, rows[1])
}

func TestProjectInnerCollectionTooLarge(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Project(matrixRequest{Rows: [][]int{make([]int, MaxCollectionSize+1)}}, testEnv())
	assert.Equal(t, diag.CodeCollectionTooLarge, codeOf(t, err), "inner lists obey the cap too")
}

type depth3 struct {
	Value string `wire:"value"`
	Next  depth4 `wire:"next"`
}
type depth4 struct {
	Value string `wire:"value"`
}
type depth2 struct {
	Next depth3 `wire:"next"`
}
type depth1 struct {
	Next depth2 `wire:"next"`
}
type depth0 struct {
	Next depth1 `wire:"next"`
}

func (depth0) Operation() contract.Operation {
	return contract.Operation{ID: "depth.zero"}
}

func TestProjectNestingDepthExceeded(t *testing.T) {
	// Value-typed nesting is never nil, so recursion reaches the limit
	// check regardless of field contents.
	e := NewEngine(nil)
	_, err := e.Project(depth0{}, testEnv())
	assert.Equal(t, diag.CodeNestingDepthExceeded, codeOf(t, err))
}

func TestProjectNotAStruct(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Project(42, testEnv())
	require.Error(t, err)
	var ce *Error
	assert.False(t, errors.As(err, &ce), "programmer misuse is not a coded error")
}
