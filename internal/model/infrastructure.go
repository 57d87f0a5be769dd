package model

// ClientNode describes a participating client as the coordinator sees it.
type ClientNode struct {
	Id               string
	Family           DatasetFamily
	NumSamples       int
	DataDistribution map[string]int64 // class ID -> number of samples
}
