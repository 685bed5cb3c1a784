package sip

import "strconv"

// ResponseStatus is a SIP response status code.
type ResponseStatus int

const (
	StatusTrying               ResponseStatus = 100
	StatusRinging              ResponseStatus = 180
	StatusCallIsBeingForwarded ResponseStatus = 181
	StatusQueued               ResponseStatus = 182
	StatusSessionProgress      ResponseStatus = 183

	StatusOK       ResponseStatus = 200
	StatusAccepted ResponseStatus = 202

	StatusMultipleChoices    ResponseStatus = 300
	StatusMovedPermanently   ResponseStatus = 301
	StatusMovedTemporarily   ResponseStatus = 302
	StatusUseProxy           ResponseStatus = 305
	StatusAlternativeService ResponseStatus = 380

	StatusBadRequest                  ResponseStatus = 400
	StatusUnauthorized                ResponseStatus = 401
	StatusForbidden                   ResponseStatus = 403
	StatusNotFound                    ResponseStatus = 404
	StatusMethodNotAllowed            ResponseStatus = 405
	StatusNotAcceptable               ResponseStatus = 406
	StatusProxyAuthenticationRequired ResponseStatus = 407
	StatusRequestTimeout              ResponseStatus = 408
	StatusUnsupportedMediaType        ResponseStatus = 415
	StatusBadExtension                ResponseStatus = 420
	StatusIntervalTooBrief            ResponseStatus = 423
	StatusTemporarilyUnavailable      ResponseStatus = 480
	StatusCallTransactionDoesNotExist ResponseStatus = 481
	StatusLoopDetected                ResponseStatus = 482
	StatusTooManyHops                 ResponseStatus = 483
	StatusBusyHere                    ResponseStatus = 486
	StatusRequestTerminated           ResponseStatus = 487
	StatusNotAcceptableHere           ResponseStatus = 488
	StatusRequestPending              ResponseStatus = 491

	StatusServerInternalError ResponseStatus = 500
	StatusNotImplemented      ResponseStatus = 501
	StatusServiceUnavailable  ResponseStatus = 503
	StatusServerTimeout       ResponseStatus = 504
	StatusVersionNotSupported ResponseStatus = 505

	StatusBusyEverywhere ResponseStatus = 600
	StatusDecline        ResponseStatus = 603
)

// UnknownReason is the reason phrase used for codes missing from the reason table.
const UnknownReason = "Unknown Reason Code"

var responseReasons = map[ResponseStatus]string{
	100: "Trying",
	180: "Ringing",
	181: "Call Is Being Forwarded",
	182: "Queued",
	183: "Session Progress",
	200: "OK",
	202: "Accepted",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Moved Temporarily",
	303: "See Other",
	305: "Use Proxy",
	380: "Alternative Service",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Conditional Request Failed",
	413: "Request Entity Too Large",
	414: "Request-URI Too Long",
	415: "Unsupported Media Type",
	416: "Unsupported URI Scheme",
	417: "Unknown Resource-Priority",
	420: "Bad Extension",
	421: "Extension Required",
	422: "Session Timer Too Small",
	423: "Interval Too Brief",
	424: "Bad Location Information",
	428: "Use Identity Header",
	429: "Provide Referrer Identity",
	430: "Flow Failed",
	433: "Anonymity Disallowed",
	436: "Bad Identity-Info",
	437: "Unsupported Certificate",
	438: "Invalid Identity Header",
	439: "First Hop Lacks Outbound Support",
	440: "Max-Breadth Exceeded",
	469: "Bad Info Package",
	470: "Consent Needed",
	480: "Temporarily Unavailable",
	481: "Call/Transaction Does Not Exist",
	482: "Loop Detected",
	483: "Too Many Hops",
	484: "Address Incomplete",
	485: "Ambiguous",
	486: "Busy Here",
	487: "Request Terminated",
	488: "Not Acceptable Here",
	489: "Bad Event",
	491: "Request Pending",
	493: "Undecipherable",
	494: "Security Agreement Required",
	500: "Server Internal Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Server Time-out",
	505: "Version Not Supported",
	513: "Message Too Large",
	514: "Response Cannot Be Sent Safely",
	515: "Response requires congestion management",
	516: "Proxying of request would induce fragmentation",
	580: "Precondition Failure",
	600: "Busy Everywhere",
	603: "Decline",
	604: "Does Not Exist Anywhere",
	606: "Not Acceptable",
}

func (s ResponseStatus) IsValid() bool { return s >= 100 && s < 700 }

func (s ResponseStatus) IsProvisional() bool { return s >= 100 && s < 200 }

func (s ResponseStatus) IsSuccessful() bool { return s >= 200 && s < 300 }

func (s ResponseStatus) IsRedirection() bool { return s >= 300 && s < 400 }

func (s ResponseStatus) IsRequestFailure() bool { return s >= 400 && s < 500 }

func (s ResponseStatus) IsServerFailure() bool { return s >= 500 && s < 600 }

func (s ResponseStatus) IsGlobalFailure() bool { return s >= 600 && s < 700 }

func (s ResponseStatus) IsFinal() bool { return s >= 200 && s < 700 }

// Reason returns the reason phrase of the status code or an empty string.
func (s ResponseStatus) Reason() string { return responseReasons[s] }

func (s ResponseStatus) String() string {
	return strconv.Itoa(int(s)) + " " + ReasonPhrase(int(s))
}

// ReasonPhrase returns the standard reason phrase for code,
// or [UnknownReason] if the code is not in the table.
func ReasonPhrase(code int) string {
	if r, ok := responseReasons[ResponseStatus(code)]; ok {
		return r
	}
	return UnknownReason
}
