package constants

const USER_AGENT = "transitboard/1.0 (+https://github.com/transitboard/transitboard)"
