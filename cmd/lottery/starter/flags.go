package starter

import (
	"flag"
)

func NewLotteryConfig(fs *flag.FlagSet) LotteryConfig {
	cfg := DefaultLotteryConfig()

	// Node:
	cfg.NodeID = fs.String("nodeID", *cfg.NodeID, "Identifier of this node in metrics and events")
	cfg.Datadir = fs.String("datadir", *cfg.Datadir, "Data directory for the node")
	cfg.CliAddr = fs.String("cliAddr", *cfg.CliAddr, "Address to bind for CLI commands")

	// Lottery:
	cfg.Name = fs.String("name", *cfg.Name, "Name of the lottery")
	cfg.Symbol = fs.String("symbol", *cfg.Symbol, "Symbol of the lottery")
	cfg.Owner = fs.String("owner", *cfg.Owner, "Address allowed to manage the lottery. Defaults to the Ethereum account when -ethUrl is set")
	cfg.Account = fs.String("account", *cfg.Account, "Off-chain only. Address holding the pool")
	cfg.TicketPrice = fs.String("ticketPrice", *cfg.TicketPrice, "Price of one ticket unit in the token's base unit")
	cfg.Cycle = fs.Int64("cycle", *cfg.Cycle, "Length of a round in seconds. Close timestamps are aligned to it")
	cfg.CloseTimestamp = fs.Int64("closeTimestamp", *cfg.CloseTimestamp, "Close time of the first round as a unix timestamp. 0 selects the next cycle boundary")
	cfg.MaxSendingCount = fs.Uint64("maxSendingCount", *cfg.MaxSendingCount, "Maximum number of winners of a random sending rule")
	cfg.SellerCommission = fs.String("sellerCommission", *cfg.SellerCommission, "Commission paid to sellers, as a percentage (e.g. 2.5%) or a ratio scaled by 10^18")
	cfg.IsOnlyOwner = fs.Bool("onlyOwner", *cfg.IsOnlyOwner, "Set to true to restrict ticket purchases to the owner")

	// Token:
	cfg.EthUrl = fs.String("ethUrl", *cfg.EthUrl, "Ethereum node JSON-RPC URL. Leave empty to use the off-chain token ledger")
	cfg.EthKeystorePath = fs.String("ethKeystorePath", *cfg.EthKeystorePath, "Path to the keystore directory. Defaults to <datadir>/keystore")
	cfg.EthAcctAddr = fs.String("ethAcctAddr", *cfg.EthAcctAddr, "Existing Eth account address that holds the pool")
	cfg.EthPassword = fs.String("ethPassword", *cfg.EthPassword, "Password for existing Eth account address or path to file")
	cfg.TokenAddr = fs.String("tokenAddr", *cfg.TokenAddr, "Address of the ERC-20 token contract")
	cfg.GasLimit = fs.Uint64("gasLimit", *cfg.GasLimit, "Gas limit for token transactions. 0 estimates the gas")
	cfg.GasPrice = fs.String("gasPrice", *cfg.GasPrice, "Gas price in wei for token transactions. Empty uses the suggested price")
	cfg.TxTimeout = fs.Duration("txTimeout", *cfg.TxTimeout, "Amount of time to wait for a token transaction to be mined")

	// Oracle:
	cfg.Oracle = fs.String("oracle", *cfg.Oracle, "Random value oracle: fixed or local")
	cfg.OracleValue = fs.String("oracleValue", *cfg.OracleValue, "Value answered by the fixed oracle")
	cfg.OracleKey = fs.String("oracleKey", *cfg.OracleKey, "Hex encoded secp256k1 key of the local oracle or path to file. Empty generates a key")
	cfg.OracleDelay = fs.Duration("oracleDelay", *cfg.OracleDelay, "Time the local oracle waits before answering")

	// Keeper:
	cfg.Keeper = fs.Bool("keeper", *cfg.Keeper, "Set to true to close and settle rounds automatically")
	cfg.KeeperInterval = fs.Duration("keeperInterval", *cfg.KeeperInterval, "Time between two checks of the round keeper")
	cfg.AutoReopen = fs.Bool("autoReopen", *cfg.AutoReopen, "Set to true to open the next round once a round is settled")

	// Metrics & logging:
	cfg.Monitor = fs.Bool("monitor", *cfg.Monitor, "Set to true to send performance metrics")
	cfg.KafkaBootstrapServers = fs.String("kafkaBootstrapServers", *cfg.KafkaBootstrapServers, "URL of Kafka Bootstrap Servers")
	cfg.KafkaUsername = fs.String("kafkaUser", *cfg.KafkaUsername, "Kafka Username")
	cfg.KafkaPassword = fs.String("kafkaPassword", *cfg.KafkaPassword, "Kafka Password")
	cfg.KafkaTopic = fs.String("kafkaTopic", *cfg.KafkaTopic, "Kafka Topic used to send lottery events")

	return cfg
}
