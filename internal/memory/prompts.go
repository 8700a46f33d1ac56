package memory

const extractionSystemPrompt = "You are an assistant that extracts user preferences and returns them in valid JSON format only."

const extractionPrompt = `You are a helpful assistant tasked with extracting information about a user's favorite cocktail ingredients and cocktails.

Analyze the following user message and extract any mentions of favorite ingredients or cocktails.
Return ONLY a valid JSON object with the following format:
{"favorite_ingredients": ["ingredient1", "ingredient2", ...], "favorite_cocktails": ["cocktail1", "cocktail2", ...]}

Both arrays should be empty if no favorites are mentioned. Do not include any explanations or other text outside the JSON.

User message:
%s

JSON Response:
`
