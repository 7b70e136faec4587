package pricing

// SampleTable returns a small on-demand pricing table in USD for a handful of
// regions. EC2 and RDS prices are hourly; s3 is per GB-month. It backs
// `regioncost init` and offline runs when no pricing source is configured.
func SampleTable() *Table {
	t := NewTable()
	t.Set("us-east-1", RegionPricing{
		EC2: map[string]float64{
			"t2.micro":  0.0116,
			"t2.small":  0.023,
			"t2.medium": 0.0464,
			"t3.micro":  0.0104,
			"t3.small":  0.0208,
			"t3.medium": 0.0416,
		},
		S3:  0.023,
		RDS: 0.017,
	})
	t.Set("us-west-2", RegionPricing{
		EC2: map[string]float64{
			"t2.micro":  0.0116,
			"t2.small":  0.023,
			"t2.medium": 0.0464,
			"t3.micro":  0.0104,
			"t3.small":  0.0208,
			"t3.medium": 0.0416,
		},
		S3:  0.023,
		RDS: 0.017,
	})
	t.Set("ap-northeast-2", RegionPricing{
		EC2: map[string]float64{
			"t2.micro":  0.0144,
			"t2.small":  0.0288,
			"t2.medium": 0.0576,
			"t3.micro":  0.013,
			"t3.small":  0.026,
			"t3.medium": 0.052,
		},
		S3:  0.025,
		RDS: 0.026,
	})
	t.Set("ap-northeast-1", RegionPricing{
		EC2: map[string]float64{
			"t2.micro":  0.0152,
			"t2.small":  0.0304,
			"t2.medium": 0.0608,
			"t3.micro":  0.0136,
			"t3.small":  0.0272,
			"t3.medium": 0.0544,
		},
		S3:  0.025,
		RDS: 0.026,
	})
	t.Set("sa-east-1", RegionPricing{
		EC2: map[string]float64{
			"t2.micro":  0.0186,
			"t2.small":  0.0372,
			"t2.medium": 0.0744,
			"t3.micro":  0.0168,
			"t3.small":  0.0336,
			"t3.medium": 0.0672,
		},
		S3:  0.0405,
		RDS: 0.035,
	})
	return t
}
