package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSeller = common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	testBuyer  = common.HexToAddress("0x8617e340b3d01fa5f11f306f4090fd50e238070d")
)

// packEventLog encodes event arguments the way the contract emits them.
func packEventLog(t *testing.T, eventName string, args ...interface{}) *types.Log {
	t.Helper()
	event, ok := contractABI.Events[eventName]
	require.True(t, ok, "unknown event %s", eventName)

	data, err := event.Inputs.Pack(args...)
	require.NoError(t, err)

	return &types.Log{
		Topics: []common.Hash{event.ID},
		Data:   data,
	}
}

func TestDecodeLogProductListed(t *testing.T) {
	log := packEventLog(t, EventProductListed,
		big.NewInt(42), testSeller, "Bamboo Chair",
		big.NewInt(1_250_000_000_000_000_000), big.NewInt(3))

	event, err := DecodeLog(log)
	require.NoError(t, err)

	listed, ok := event.(ProductListedEvent)
	require.True(t, ok)
	assert.Equal(t, "42", listed.ProductID.String())
	assert.Equal(t, testSeller, listed.Seller)
	assert.Equal(t, "Bamboo Chair", listed.ItemName)
	assert.Equal(t, "3", listed.Quantity.String())

	parsed := listed.Parsed()
	assert.Equal(t, EventProductListed, parsed.Name)
	assert.Equal(t, "42", parsed.Args["productId"])
	assert.Equal(t, "1250000000000000000", parsed.Args["price"])
	assert.Equal(t, testSeller.Hex(), parsed.Args["seller"])
}

func TestDecodeLogProductPurchasedPreservesBigValues(t *testing.T) {
	// Larger than a uint64 can hold; the decimal-string rendering must
	// survive untouched.
	hugePrice, ok := new(big.Int).SetString("340282366920938463463374607431768211455", 10)
	require.True(t, ok)

	log := packEventLog(t, EventProductPurchased,
		big.NewInt(7), big.NewInt(1), testBuyer, testSeller,
		new(big.Int).SetUint64(18446744073709551615), hugePrice, big.NewInt(1_700_000_000))

	event, err := DecodeLog(log)
	require.NoError(t, err)

	purchased, ok := event.(ProductPurchasedEvent)
	require.True(t, ok)
	assert.Equal(t, "18446744073709551615", purchased.Quantity.String())

	parsed := purchased.Parsed()
	assert.Equal(t, "18446744073709551615", parsed.Args["quantity"])
	assert.Equal(t, "340282366920938463463374607431768211455", parsed.Args["totalPrice"])
	assert.Equal(t, testBuyer.Hex(), parsed.Args["buyer"])
	assert.Equal(t, "1700000000", parsed.Args["timestamp"])
}

func TestDecodeLogProductDeactivated(t *testing.T) {
	log := packEventLog(t, EventProductDeactived, big.NewInt(42), big.NewInt(1_700_000_000))

	event, err := DecodeLog(log)
	require.NoError(t, err)

	deactivated, ok := event.(ProductDeactivatedEvent)
	require.True(t, ok)
	assert.Equal(t, "42", deactivated.ProductID.String())
}

func TestDecodeLogUnknownSignature(t *testing.T) {
	_, err := DecodeLog(&types.Log{
		Topics: []common.Hash{common.HexToHash("0xdeadbeef")},
	})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeLog(&types.Log{})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestAuditRecordSkipsForeignLogs(t *testing.T) {
	listedLog := packEventLog(t, EventProductListed,
		big.NewInt(42), testSeller, "Bamboo Chair", big.NewInt(1), big.NewInt(2))
	foreignLog := &types.Log{Topics: []common.Hash{common.HexToHash("0xdeadbeef")}}

	receipt := &types.Receipt{
		TxHash:      common.HexToHash("0x11f3a4b08eccb0f03e12733384a27f75c9e4aa68f9eabb3d87ac5e21e8f76b2c"),
		BlockNumber: new(big.Int).SetUint64(18446744073709551615),
		Logs:        []*types.Log{foreignLog, listedLog},
	}

	record := AuditRecord(receipt)
	assert.Equal(t, receipt.TxHash.Hex(), record.Hash)
	assert.Equal(t, "18446744073709551615", record.BlockNumber)
	require.Len(t, record.Events, 1)
	assert.Equal(t, EventProductListed, record.Events[0].Name)
}
