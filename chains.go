package facilitator

import "math/big"

// ChainConfig contains chain-specific configuration: the network
// identifier, chain id, and the verified USDC contract with its EIP-3009
// domain parameters. All USDC addresses and EIP-3009 parameters were
// verified on 2025-10-28.
type ChainConfig struct {
	// NetworkID is the x402 protocol network identifier (e.g., "base").
	NetworkID string

	// ChainID is the EVM chain id used in the EIP-712 domain and for
	// transaction signing.
	ChainID *big.Int

	// USDCAddress is the official Circle USDC contract address.
	USDCAddress string

	// Decimals is the number of decimal places for USDC (always 6).
	Decimals uint8

	// EIP3009Name is the EIP-3009 domain parameter "name".
	EIP3009Name string

	// EIP3009Version is the EIP-3009 domain parameter "version".
	EIP3009Version string
}

// Mainnet chain configurations
var (
	// BaseMainnet is the configuration for Base mainnet.
	BaseMainnet = ChainConfig{
		NetworkID:      "base",
		ChainID:        big.NewInt(8453),
		USDCAddress:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	// PolygonMainnet is the configuration for Polygon PoS mainnet.
	PolygonMainnet = ChainConfig{
		NetworkID:      "polygon",
		ChainID:        big.NewInt(137),
		USDCAddress:    "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}

	// AvalancheMainnet is the configuration for Avalanche C-Chain mainnet.
	AvalancheMainnet = ChainConfig{
		NetworkID:      "avalanche",
		ChainID:        big.NewInt(43114),
		USDCAddress:    "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}
)

// Testnet chain configurations
var (
	// BaseSepolia is the configuration for Base Sepolia testnet.
	// EIP-3009 parameters verified 2025-10-30 via on-chain contract read.
	BaseSepolia = ChainConfig{
		NetworkID:      "base-sepolia",
		ChainID:        big.NewInt(84532),
		USDCAddress:    "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}

	// PolygonAmoy is the configuration for Polygon Amoy testnet.
	PolygonAmoy = ChainConfig{
		NetworkID:      "polygon-amoy",
		ChainID:        big.NewInt(80002),
		USDCAddress:    "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	}

	// AvalancheFuji is the configuration for Avalanche Fuji testnet.
	AvalancheFuji = ChainConfig{
		NetworkID:      "avalanche-fuji",
		ChainID:        big.NewInt(43113),
		USDCAddress:    "0x5425890298aed601595a70AB815c96711a31Bc65",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	}
)

// supportedChains maps network identifiers to their configurations.
var supportedChains = map[string]ChainConfig{
	"base":           BaseMainnet,
	"polygon":        PolygonMainnet,
	"avalanche":      AvalancheMainnet,
	"base-sepolia":   BaseSepolia,
	"polygon-amoy":   PolygonAmoy,
	"avalanche-fuji": AvalancheFuji,
}

// ChainByNetwork looks up the configuration for a network identifier.
func ChainByNetwork(networkID string) (ChainConfig, bool) {
	chain, ok := supportedChains[networkID]
	return chain, ok
}

// USDCToken returns the chain's USDC contract as a TokenConfig suitable
// for WithAsset.
func (c ChainConfig) USDCToken() TokenConfig {
	return TokenConfig{
		Address:  c.USDCAddress,
		Name:     c.EIP3009Name,
		Version:  c.EIP3009Version,
		Decimals: c.Decimals,
	}
}
