package sniffer

import (
	"fmt"

	"blesniff/internal/advdata"
	"blesniff/internal/ids"
)

type summary struct {
	name     string
	company  string
	services []string
}

// summarize picks the fields shown on the [ADV] line: the local name, the
// first manufacturer and the advertised services.
func summarize(recs []advdata.Record, res *ids.Resolver) summary {
	var s summary
	service := func(v uint32, label string) {
		if n := res.ServiceName16(v); n != "" {
			label += " (" + n + ")"
		}
		s.services = append(s.services, label)
	}
	for _, r := range recs {
		switch v := r.(type) {
		case advdata.CompleteName:
			s.name = v.Name
		case advdata.ShortenedName:
			if s.name == "" {
				s.name = v.Name
			}
		case advdata.ServiceList16:
			for _, u := range v.UUIDs {
				service(uint32(u), u.String())
			}
		case advdata.ServiceList32:
			for _, u := range v.UUIDs {
				service(uint32(u), u.String())
			}
		case advdata.ServiceList128:
			for _, u := range v.UUIDs {
				label := u.String()
				if n := res.ServiceName(u); n != "" {
					label += " (" + n + ")"
				}
				s.services = append(s.services, label)
			}
		case advdata.ServiceData16:
			service(uint32(v.UUID), v.UUID.String())
		case advdata.RemoteID, advdata.RemoteIDPack:
			service(advdata.RemoteIDServiceUUID, fmt.Sprintf("0x%04X", advdata.RemoteIDServiceUUID))
		}
		if s.company == "" {
			if id, ok := companyOf(r); ok {
				s.company = res.AnnotateCompany(id)
			}
		}
	}
	return s
}

func companyOf(r advdata.Record) (uint16, bool) {
	switch v := r.(type) {
	case advdata.ManufacturerSpecific:
		return v.CompanyID, true
	case advdata.AppleMSD:
		return v.CompanyID, true
	case advdata.MicrosoftMSD:
		return v.CompanyID, true
	}
	return 0, false
}
