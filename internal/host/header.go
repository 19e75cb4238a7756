package host

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// HeaderName is the request header carrying the host's capabilities.
const HeaderName = "Switch-Host"

// ErrInvalidHeader is returned for an unparseable or incomplete Switch-Host header.
var ErrInvalidHeader = errors.New("invalid Switch-Host header")

// ParseHeader extracts the host profile from a Switch-Host header.
// Format (RFC 8941 Dictionary):
//
//	return="com.merchant.app", browser=?1, apps=("com.venmo";v="10.2.0" "com.paypal.android")
//
// return is required and may be a string or an inner list of strings.
// browser defaults to true when absent. apps is optional; each entry may carry
// a v parameter with the installed version. Unknown keys are ignored.
func ParseHeader(header string) (Profile, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Profile{}, fmt.Errorf("%w: empty", ErrInvalidHeader)
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	p := Profile{Browser: true}

	member, ok := dict.Get("return")
	if !ok {
		return Profile{}, fmt.Errorf("%w: return key not found", ErrInvalidHeader)
	}
	p.ReturnSchemes, err = stringsOf(member)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: return: %v", ErrInvalidHeader, err)
	}
	if len(p.ReturnSchemes) == 0 {
		return Profile{}, fmt.Errorf("%w: return must name at least one scheme", ErrInvalidHeader)
	}

	if member, ok := dict.Get("browser"); ok {
		item, ok := member.(httpsfv.Item)
		if !ok {
			return Profile{}, fmt.Errorf("%w: browser must be an item", ErrInvalidHeader)
		}
		b, ok := item.Value.(bool)
		if !ok {
			return Profile{}, fmt.Errorf("%w: browser must be a boolean", ErrInvalidHeader)
		}
		p.Browser = b
	}

	if member, ok := dict.Get("apps"); ok {
		list, ok := member.(httpsfv.InnerList)
		if !ok {
			return Profile{}, fmt.Errorf("%w: apps must be an inner list", ErrInvalidHeader)
		}
		for _, item := range list.Items {
			pkg, ok := item.Value.(string)
			if !ok {
				return Profile{}, fmt.Errorf("%w: app package must be a string", ErrInvalidHeader)
			}
			app := App{Package: pkg}
			if v, ok := item.Params.Get("v"); ok {
				version, ok := v.(string)
				if !ok {
					return Profile{}, fmt.Errorf("%w: version of %s must be a string", ErrInvalidHeader, pkg)
				}
				app.Version = version
			}
			p.Apps = append(p.Apps, app)
		}
	}

	return p, nil
}

// Header serializes p back into Switch-Host header form.
func (p Profile) Header() (string, error) {
	dict := httpsfv.NewDictionary()

	if len(p.ReturnSchemes) == 1 {
		dict.Add("return", httpsfv.NewItem(p.ReturnSchemes[0]))
	} else {
		schemes := httpsfv.InnerList{Params: httpsfv.NewParams()}
		for _, s := range p.ReturnSchemes {
			schemes.Items = append(schemes.Items, httpsfv.NewItem(s))
		}
		dict.Add("return", schemes)
	}

	dict.Add("browser", httpsfv.NewItem(p.Browser))

	if len(p.Apps) > 0 {
		apps := httpsfv.InnerList{Params: httpsfv.NewParams()}
		for _, a := range p.Apps {
			item := httpsfv.NewItem(a.Package)
			if a.Version != "" {
				item.Params.Add("v", a.Version)
			}
			apps.Items = append(apps.Items, item)
		}
		dict.Add("apps", apps)
	}

	return httpsfv.Marshal(dict)
}

// stringsOf accepts a string item or an inner list of strings.
func stringsOf(m httpsfv.Member) ([]string, error) {
	switch v := m.(type) {
	case httpsfv.Item:
		s, ok := v.Value.(string)
		if !ok {
			return nil, errors.New("must be a string")
		}
		return []string{s}, nil
	case httpsfv.InnerList:
		out := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			s, ok := item.Value.(string)
			if !ok {
				return nil, errors.New("list entries must be strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New("unsupported value")
	}
}
