package marketdata

import "sort"

// altcoinGeckoIDs maps futures base assets to CoinGecko ids for the derivatives screener.
var altcoinGeckoIDs = map[string]string{
	"ETH":    "ethereum",
	"SOL":    "solana",
	"XRP":    "ripple",
	"BNB":    "binancecoin",
	"DOGE":   "dogecoin",
	"ADA":    "cardano",
	"AVAX":   "avalanche-2",
	"LINK":   "chainlink",
	"DOT":    "polkadot",
	"TRX":    "tron",
	"TON":    "the-open-network",
	"LTC":    "litecoin",
	"BCH":    "bitcoin-cash",
	"SHIB":   "shiba-inu",
	"ATOM":   "cosmos",
	"UNI":    "uniswap",
	"NEAR":   "near",
	"APT":    "aptos",
	"SUI":    "sui",
	"ARB":    "arbitrum",
	"OP":     "optimism",
	"FIL":    "filecoin",
	"HBAR":   "hedera-hashgraph",
	"ETC":    "ethereum-classic",
	"XLM":    "stellar",
	"AAVE":   "aave",
	"INJ":    "injective-protocol",
	"SEI":    "sei-network",
	"TIA":    "celestia",
	"STX":    "blockstack",
	"IMX":    "immutable-x",
	"RNDR":   "render-token",
	"FET":    "fetch-ai",
	"GRT":    "the-graph",
	"MKR":    "maker",
	"LDO":    "lido-dao",
	"PEPE":   "pepe",
	"WIF":    "dogwifcoin",
	"BONK":   "bonk",
	"JUP":    "jupiter-exchange-solana",
	"ENA":    "ethena",
	"ONDO":   "ondo-finance",
	"PENDLE": "pendle",
	"ALGO":   "algorand",
	"SAND":   "the-sandbox",
	"CRV":    "curve-dao-token",
	"DYDX":   "dydx-chain",
	"WLD":    "worldcoin-wld",
	"KAS":    "kaspa",
	"TAO":    "bittensor",
}

// upbitGeckoIDs maps Upbit KRW market bases to CoinGecko ids for the Korean screener.
var upbitGeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"XRP":   "ripple",
	"SOL":   "solana",
	"DOGE":  "dogecoin",
	"ADA":   "cardano",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"DOT":   "polkadot",
	"TRX":   "tron",
	"MATIC": "matic-network",
	"SHIB":  "shiba-inu",
	"ATOM":  "cosmos",
	"UNI":   "uniswap",
	"NEAR":  "near",
	"APT":   "aptos",
	"SUI":   "sui",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"FIL":   "filecoin",
	"HBAR":  "hedera-hashgraph",
	"VET":   "vechain",
	"ALGO":  "algorand",
	"SAND":  "the-sandbox",
	"MANA":  "decentraland",
	"AAVE":  "aave",
	"EOS":   "eos",
	"XLM":   "stellar",
	"FLOW":  "flow",
	"IMX":   "immutable-x",
	"SEI":   "sei-network",
	"STX":   "blockstack",
	"INJ":   "injective-protocol",
	"THETA": "theta-token",
	"GRT":   "the-graph",
	"AXS":   "axie-infinity",
	"CRV":   "curve-dao-token",
	"ENS":   "ethereum-name-service",
	"COMP":  "compound-governance-token",
	"ZRX":   "0x",
	"BAT":   "basic-attention-token",
	"IOTA":  "iota",
	"QTUM":  "qtum",
	"NEO":   "neo",
	"KAVA":  "kava",
	"ONT":   "ontology",
	"ZIL":   "zilliqa",
	"ICX":   "icon",
	"STORJ": "storj",
	"SNX":   "havven",
}

func geckoIDs(m map[string]string, extra ...string) []string {
	out := make([]string, 0, len(m)+len(extra))
	for _, id := range m {
		out = append(out, id)
	}
	out = append(out, extra...)
	sort.Strings(out)
	return out
}
