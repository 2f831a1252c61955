package model

import "fmt"

type BalanceDocument struct {
	ID      string `bson:"_id"` // asset/account
	Asset   string `bson:"asset"`
	Account string `bson:"account"`
	Amount  string `bson:"amount"`
}

type IssuanceDocument struct {
	Asset  string `bson:"_id"`
	Amount string `bson:"amount"`
}

func BalanceId(asset, account string) string {
	return fmt.Sprintf("%s/%s", asset, account)
}
