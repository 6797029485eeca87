package msg

// mtiClasses according to [ISO] 1, second position of the MTI
var mtiClasses = map[byte]string{
	'1': "authorization",
	'2': "financial",
	'3': "file actions",
	'4': "reversal",
	'5': "reconciliation",
	'6': "administrative",
	'7': "fee collection",
	'8': "network management",
}

// MTIClass returns the message class indicated by the given MTI, or "unknown".
func MTIClass(mti string) string {
	if len(mti) != mtiChars {
		return "unknown"
	}
	result, ok := mtiClasses[mti[1]]
	if !ok {
		return "unknown"
	}
	return result
}
