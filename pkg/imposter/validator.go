package imposter

import (
	"fmt"
	"net"
	"net/url"
	"regexp"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/jp"
)

// ValidationError represents a validation failure with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// Validate checks the config for structural problems: unknown protocol,
// out-of-range port, malformed stubs, predicates, or proxy targets. It does
// not touch the network; bind failures surface at create time.
func (c *Config) Validate() error {
	if c.Protocol == "" {
		return &ValidationError{Field: "protocol", Message: "protocol is required"}
	}
	if !c.Protocol.Valid() {
		return &ValidationError{Field: "protocol", Message: fmt.Sprintf("unsupported protocol: %s", c.Protocol)}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ValidationError{Field: "port", Message: fmt.Sprintf("port %d out of range", c.Port)}
	}
	if c.Mode != "" && c.Mode != ModeText && c.Mode != ModeBinary {
		return &ValidationError{Field: "mode", Message: fmt.Sprintf("mode must be %q or %q", ModeText, ModeBinary)}
	}
	if c.Mode != "" && c.Protocol != ProtocolTCP {
		return &ValidationError{Field: "mode", Message: "mode applies to tcp imposters only"}
	}
	if c.EndOfRequest != "" && c.Protocol != ProtocolTCP {
		return &ValidationError{Field: "endOfRequest", Message: "endOfRequest applies to tcp imposters only"}
	}
	if c.Protocol == ProtocolHTTPS {
		if (c.Key == "") != (c.Cert == "") {
			return &ValidationError{Field: "key", Message: "key and cert must be provided together"}
		}
	} else if c.Key != "" || c.Cert != "" {
		return &ValidationError{Field: "cert", Message: "key and cert apply to https imposters only"}
	}

	for i := range c.Stubs {
		if err := c.Stubs[i].validate(fmt.Sprintf("stubs[%d]", i), c.Protocol); err != nil {
			return err
		}
	}
	return nil
}

// ValidateStub checks one stub against a protocol's constraints. Used
// when stubs are added to or replaced on a live imposter.
func ValidateStub(s *Stub, protocol Protocol) error {
	return s.validate("stub", protocol)
}

func (s *Stub) validate(field string, protocol Protocol) error {
	for i := range s.Predicates {
		if err := s.Predicates[i].validate(fmt.Sprintf("%s.predicates[%d]", field, i)); err != nil {
			return err
		}
	}
	for i := range s.Responses {
		if err := s.Responses[i].validate(fmt.Sprintf("%s.responses[%d]", field, i), protocol); err != nil {
			return err
		}
	}
	return nil
}

func (r *Response) validate(field string, protocol Protocol) error {
	count := 0
	if r.Is != nil {
		count++
	}
	if r.Proxy != nil {
		count++
	}
	if r.Inject != "" {
		count++
	}
	if count == 0 {
		return &ValidationError{Field: field, Message: "one of is, proxy, or inject is required"}
	}
	if count > 1 {
		return &ValidationError{Field: field, Message: "only one of is, proxy, or inject may be specified"}
	}

	if r.Proxy != nil {
		if protocol == ProtocolSMTP {
			return &ValidationError{Field: field + ".proxy", Message: "smtp imposters cannot proxy"}
		}
		if err := r.Proxy.validate(field+".proxy", protocol); err != nil {
			return err
		}
	}

	if b := r.Behaviors; b != nil {
		if b.Repeat < 0 {
			return &ValidationError{Field: field + "._behaviors.repeat", Message: "repeat cannot be negative"}
		}
		if w := b.Wait; w != nil {
			if w.Fixed < 0 || w.Min < 0 || w.Max < 0 {
				return &ValidationError{Field: field + "._behaviors.wait", Message: "wait cannot be negative"}
			}
			if w.Min > w.Max {
				return &ValidationError{Field: field + "._behaviors.wait", Message: "wait min cannot exceed max"}
			}
		}
	}
	return nil
}

func (p *ProxyResponse) validate(field string, protocol Protocol) error {
	if p.To == "" {
		return &ValidationError{Field: field + ".to", Message: "proxy target is required"}
	}
	if p.Mode != "" && !p.Mode.Valid() {
		return &ValidationError{Field: field + ".mode", Message: fmt.Sprintf("unknown proxy mode: %s", p.Mode)}
	}

	switch protocol {
	case ProtocolHTTP, ProtocolHTTPS:
		u, err := url.Parse(p.To)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return &ValidationError{Field: field + ".to", Message: fmt.Sprintf("%q is not an http(s) origin URL", p.To)}
		}
	case ProtocolTCP:
		// Accept either host:port or a tcp:// URL.
		target := p.To
		if u, err := url.Parse(p.To); err == nil && u.Scheme == "tcp" {
			target = u.Host
		}
		if _, _, err := net.SplitHostPort(target); err != nil {
			return &ValidationError{Field: field + ".to", Message: fmt.Sprintf("%q is not a host:port tcp origin", p.To)}
		}
	}
	return nil
}

func (p *Predicate) validate(field string) error {
	if p.Not != nil {
		if err := p.Not.validate(field + ".not"); err != nil {
			return err
		}
	}
	for i := range p.And {
		if err := p.And[i].validate(fmt.Sprintf("%s.and[%d]", field, i)); err != nil {
			return err
		}
	}
	for i := range p.Or {
		if err := p.Or[i].validate(fmt.Sprintf("%s.or[%d]", field, i)); err != nil {
			return err
		}
	}

	if err := validateRegexValues(p.Matches, field+".matches"); err != nil {
		return err
	}
	if p.Except != "" {
		if _, err := regexp.Compile(p.Except); err != nil {
			return &ValidationError{Field: field + ".except", Message: fmt.Sprintf("invalid regular expression: %v", err)}
		}
	}
	if p.JSONPath != nil {
		if p.JSONPath.Selector == "" {
			return &ValidationError{Field: field + ".jsonpath.selector", Message: "selector is required"}
		}
		if _, err := jp.ParseString(p.JSONPath.Selector); err != nil {
			return &ValidationError{Field: field + ".jsonpath.selector", Message: fmt.Sprintf("invalid jsonpath: %v", err)}
		}
	}
	if p.XPath != nil {
		if p.XPath.Selector == "" {
			return &ValidationError{Field: field + ".xpath.selector", Message: "selector is required"}
		}
		if _, err := etree.CompilePath(p.XPath.Selector); err != nil {
			return &ValidationError{Field: field + ".xpath.selector", Message: fmt.Sprintf("invalid xpath: %v", err)}
		}
	}
	return nil
}

// validateRegexValues compiles every string leaf under a matches operator.
func validateRegexValues(values map[string]any, field string) error {
	for key, v := range values {
		switch val := v.(type) {
		case string:
			if _, err := regexp.Compile(val); err != nil {
				return &ValidationError{Field: fmt.Sprintf("%s.%s", field, key), Message: fmt.Sprintf("invalid regular expression: %v", err)}
			}
		case map[string]any:
			if err := validateRegexValues(val, fmt.Sprintf("%s.%s", field, key)); err != nil {
				return err
			}
		}
	}
	return nil
}
