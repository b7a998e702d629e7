package starter

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/monitor"
)

func startKafkaProducer(cfg LotteryConfig, account ethcommon.Address) error {
	if *cfg.KafkaBootstrapServers == "" || *cfg.KafkaUsername == "" || *cfg.KafkaPassword == "" || *cfg.KafkaTopic == "" {
		glog.Warning("not starting Kafka producer as producer config values aren't present")
		return nil
	}

	return monitor.InitKafkaProducer(
		*cfg.KafkaBootstrapServers,
		*cfg.KafkaUsername,
		*cfg.KafkaPassword,
		*cfg.KafkaTopic,
		account.Hex(),
	)
}
