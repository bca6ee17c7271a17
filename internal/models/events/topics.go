package events

const (
	TopicDepositCompleted = "deposit_completed"
	TopicRedeemCompleted  = "redeem_completed"
	TopicRateUpdated      = "rate_updated"
	TopicBridgeTransfers  = "bridge_transfers"
	TopicBridgeReleased   = "bridge_released"
)
