package model

const ChainInfoId = "chain_info"

type CounterDocument struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}

type ChainInfoDocument struct {
	ID     string `bson:"_id"`
	Height uint64 `bson:"height"`
}
