package entity

// NamingSeries 单号序列，每个已展开的前缀一行
type NamingSeries struct {
	Prefix string `gorm:"primaryKey;size:64"`
	LastNo int    `gorm:"not null;default:0"`
}

func (NamingSeries) TableName() string {
	return "mfg_naming_series"
}
