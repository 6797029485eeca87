package dict

var defaultDictionary = mustNew(
	Definition{ID: 2, Name: "Primary account number", Rule: Variable(2, 19).Packed()},
	Definition{ID: 3, Name: "Processing code", Rule: Fixed(6)},
	Definition{ID: 4, Name: "Amount, transaction", Rule: Fixed(12)},
	Definition{ID: 5, Name: "Amount, settlement", Rule: Fixed(12)},
	Definition{ID: 6, Name: "Amount, cardholder billing", Rule: Fixed(12)},
	Definition{ID: 7, Name: "Transmission date & time", Rule: Fixed(10)},
	Definition{ID: 9, Name: "Conversion rate, settlement", Rule: Fixed(8)},
	Definition{ID: 10, Name: "Conversion rate, cardholder billing", Rule: Fixed(8)},
	Definition{ID: 11, Name: "System trace audit number", Rule: Fixed(6)},
	Definition{ID: 12, Name: "Local transaction time", Rule: Fixed(6)},
	Definition{ID: 13, Name: "Local transaction date", Rule: Fixed(4)},
	Definition{ID: 14, Name: "Expiration date", Rule: Fixed(4)},
	Definition{ID: 15, Name: "Settlement date", Rule: Fixed(4)},
	Definition{ID: 18, Name: "Merchant type", Rule: Fixed(4)},
	Definition{ID: 19, Name: "Acquiring institution country code", Rule: Fixed(3).Packed()},
	Definition{ID: 22, Name: "POS entry mode", Rule: Fixed(4)},
	Definition{ID: 23, Name: "Card sequence number", Rule: Fixed(3).Packed()},
	Definition{ID: 24, Name: "Network international identifier", Rule: Fixed(4)},
	Definition{ID: 25, Name: "POS condition code", Rule: Fixed(2)},
	Definition{ID: 32, Name: "Acquiring institution identification code", Rule: Variable(2, 11).Packed()},
	Definition{ID: 35, Name: "Track 2 data", Rule: Variable(2, 37).Packed()},
	Definition{ID: 37, Name: "Retrieval reference number", Rule: Fixed(12).ByteCounted(), Encoding: ASCII},
	Definition{ID: 38, Name: "Authorization identification response", Rule: Fixed(6).ByteCounted(), Encoding: ASCII},
	Definition{ID: 39, Name: "Response code", Rule: Fixed(2).ByteCounted(), Encoding: ASCII},
	Definition{ID: 41, Name: "Card acceptor terminal identification", Rule: Fixed(8).ByteCounted(), Encoding: ASCII},
	Definition{ID: 42, Name: "Card acceptor identification code", Rule: Fixed(15).ByteCounted(), Encoding: ASCII},
	Definition{ID: 43, Name: "Card acceptor name/location", Rule: Fixed(20).ByteCounted(), Encoding: ASCII},
	Definition{ID: 44, Name: "Additional response data", Rule: Variable(2, 25).ByteCounted(), Encoding: ASCII},
	Definition{ID: 45, Name: "Track 1 data", Rule: Variable(2, 76).Packed()},
	Definition{ID: 48, Name: "Additional data (private)", Rule: Variable(4, 999).ByteCounted(), Private: true},
	Definition{ID: 49, Name: "Currency code, transaction", Rule: Fixed(3).ByteCounted(), Encoding: ASCII},
	Definition{ID: 50, Name: "Currency code, settlement", Rule: Fixed(3).ByteCounted(), Encoding: ASCII},
	Definition{ID: 51, Name: "Currency code, cardholder billing", Rule: Fixed(3).ByteCounted(), Encoding: ASCII},
	Definition{ID: 52, Name: "PIN data", Rule: Fixed(8).ByteCounted(), Encoding: Binary},
	Definition{ID: 54, Name: "Additional amounts", Rule: Variable(4, 999).ByteCounted()},
	Definition{ID: 55, Name: "ICC data", Rule: Variable(4, 999).ByteCounted(), Encoding: Binary, EMV: true},
	Definition{ID: 60, Name: "Reserved (national)", Rule: Variable(4, 999).ByteCounted()},
	Definition{ID: 62, Name: "Reserved (private)", Rule: Variable(4, 999).ByteCounted(), Encoding: ASCII},
	Definition{ID: 64, Name: "Message authentication code", Rule: Fixed(8).ByteCounted(), Encoding: Binary},
	Definition{ID: 70, Name: "Network management information code", Rule: Fixed(4)},
	Definition{ID: 116, Name: "Reserved (national)", Rule: Variable(4, 999).ByteCounted(), Encoding: ASCII},
	Definition{ID: 121, Name: "Additional data (private)", Rule: Variable(4, 999).ByteCounted(), Private: true},
	Definition{ID: 122, Name: "Reserved (private)", Rule: Variable(4, 999).ByteCounted(), Encoding: ASCII},
	Definition{ID: 128, Name: "Message authentication code", Rule: Fixed(8).ByteCounted(), Encoding: Binary},
)

// Default returns the built-in dictionary. It is constructed once and shared by all callers.
func Default() *Dictionary {
	return defaultDictionary
}

func mustNew(definitions ...Definition) *Dictionary {
	result, err := New(definitions...)
	if err != nil {
		panic(err)
	}
	return result
}
