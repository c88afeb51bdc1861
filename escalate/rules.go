package escalate

// Rules is the static keyword and threshold configuration the Classifier
// evaluates against. The zero value is not usable; start from DefaultRules
// and override fields, or load a rules file via config.LoadRules.
type Rules struct {
	// Takeover keyword lists, matched as substrings of the message content.
	ComplaintKeywords  []string `yaml:"complaint_keywords"`
	EscalationKeywords []string `yaml:"escalation_keywords"`
	BrandRiskKeywords  []string `yaml:"brand_risk_keywords"`

	// AuditKeywords flag content or drafted replies for human review.
	AuditKeywords []string `yaml:"audit_keywords"`

	// ReplyKeywords gate which non-question messages deserve an automated
	// reply at all (question marks always pass).
	ReplyKeywords []string `yaml:"reply_keywords"`

	// Confidence thresholds, both in [0,1].
	LowConfidence   float64 `yaml:"low_confidence_threshold"`
	AuditConfidence float64 `yaml:"audit_confidence_threshold"`

	// Intents assign priority and category to messages that no takeover rule
	// claimed, scanned in order with first match winning.
	Intents []IntentRule `yaml:"intents"`
}

// IntentRule maps content keywords onto a queue priority and category.
type IntentRule struct {
	Category string   `yaml:"category"`
	Priority Priority `yaml:"priority"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules returns the shipped rule set. The keyword lists follow the
// operations team's Mandarin vocabulary for live-commerce rooms.
func DefaultRules() Rules {
	return Rules{
		ComplaintKeywords: []string{
			"投诉", "举报", "维权", "退款", "假货", "诈骗", "欺诈",
			"赔偿", "律师", "消费者协会", "差评", "曝光", "工商", "315",
		},
		EscalationKeywords: []string{
			"人工客服", "转人工", "人工服务", "真人", "客服人员", "人工接听", "不要机器人",
		},
		BrandRiskKeywords: []string{
			"虚假宣传", "价格欺诈", "质量问题", "安全隐患",
		},
		AuditKeywords: []string{
			"退款", "赔偿", "投诉", "维权", "质量问题", "假货", "欺诈",
		},
		ReplyKeywords: []string{
			"多少钱", "价格", "有货", "库存", "什么时候", "怎么买", "链接", "优惠", "活动",
		},
		LowConfidence:   0.6,
		AuditConfidence: 0.75,
		Intents: []IntentRule{
			{Category: "after_sales", Priority: PriorityHigh, Keywords: []string{"售后", "退货", "换货", "维修"}},
			{Category: "technical", Priority: PriorityHigh, Keywords: []string{"技术", "故障", "报错", "坏了"}},
			{Category: "price_inquiry", Priority: PriorityMedium, Keywords: []string{"多少钱", "价格", "优惠", "便宜"}},
			{Category: "stock_inquiry", Priority: PriorityMedium, Keywords: []string{"库存", "有货", "现货", "发货"}},
			{Category: "product_info", Priority: PriorityMedium, Keywords: []string{"产品", "材质", "尺寸", "怎么样"}},
			{Category: "greeting", Priority: PriorityLow, Keywords: []string{"你好", "在吗", "哈喽", "hello"}},
		},
	}
}
