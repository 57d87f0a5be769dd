package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Algorithm int

const (
	FedAvg Algorithm = iota
	Prox
	FedRep
	MAML
	DAPFL
)

var algorithmNames = map[Algorithm]string{
	FedAvg: "fedavg",
	Prox:   "prox",
	FedRep: "fedrep",
	MAML:   "maml",
	DAPFL:  "dapfl",
}

func (a Algorithm) String() string {
	if name, found := algorithmNames[a]; found {
		return name
	}
	return "unknown"
}

// ParseAlgorithm accepts the algorithm name in any case.
func ParseAlgorithm(s string) (Algorithm, error) {
	for alg, name := range algorithmNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("%w: algorithm %q", ErrInvalidConfig, s)
}

// Marshal as a JSON string: "fedavg"/"fedrep"/...
func (a Algorithm) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// Accept either JSON strings ("fedrep") or numbers (0..4)
func (a *Algorithm) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, func(s string) error {
		alg, err := ParseAlgorithm(s)
		if err == nil {
			*a = alg
		}
		return err
	}, func(i int) error {
		if _, found := algorithmNames[Algorithm(i)]; !found {
			return fmt.Errorf("%w: algorithm numeric value %d", ErrInvalidConfig, i)
		}
		*a = Algorithm(i)
		return nil
	})
}

// DatasetFamily groups datasets that share a model layout and a shard format.
type DatasetFamily int

const (
	Image DatasetFamily = iota
	Character
	Sequence
	LargeImage
)

var familyNames = map[DatasetFamily]string{
	Image:      "image",
	Character:  "character",
	Sequence:   "sequence",
	LargeImage: "large-image",
}

// dataset names resolve to their family
var datasetFamilies = map[string]DatasetFamily{
	"cifar10":  Image,
	"cifar100": Image,
	"mnist":    Character,
	"femnist":  Character,
	"sent140":  Sequence,
	"imagenet": LargeImage,
}

func (f DatasetFamily) String() string {
	if name, found := familyNames[f]; found {
		return name
	}
	return "unknown"
}

// IsColumnar reports whether shards of the family are parallel input/label columns
// consumed in full rather than index-selected samples.
func (f DatasetFamily) IsColumnar() bool {
	return f == Character || f == Sequence
}

// ParseDatasetFamily accepts either a family name or a dataset name (e.g. "femnist").
func ParseDatasetFamily(s string) (DatasetFamily, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for family, name := range familyNames {
		if s == name {
			return family, nil
		}
	}
	if family, found := datasetFamilies[s]; found {
		return family, nil
	}
	return 0, fmt.Errorf("%w: dataset family %q", ErrInvalidConfig, s)
}

func (f DatasetFamily) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *DatasetFamily) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, func(s string) error {
		family, err := ParseDatasetFamily(s)
		if err == nil {
			*f = family
		}
		return err
	}, func(i int) error {
		if _, found := familyNames[DatasetFamily(i)]; !found {
			return fmt.Errorf("%w: dataset family numeric value %d", ErrInvalidConfig, i)
		}
		*f = DatasetFamily(i)
		return nil
	})
}

func unmarshalEnum(b []byte, fromString func(string) error, fromInt func(int) error) error {
	// string path
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return fromString(s)
	}
	// numeric path
	var i int
	if err := json.Unmarshal(b, &i); err != nil {
		return err
	}
	return fromInt(i)
}
