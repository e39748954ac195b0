package domain

import (
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	Sensor Domain = "sensor"
)

var validDomains = mapset.NewSet(Sensor)

type Domain string

func (d Domain) String() string { return string(d) }
func (d Domain) IsValid() bool  { return validDomains.Contains(d) }
